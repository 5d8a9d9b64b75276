package dynamo

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/matbactivity/songconstitution/internal/models"
	"github.com/matbactivity/songconstitution/internal/repository"
)

// versionedUpdate builds a conditional update of a live constitution at
// version. The version is always incremented.
func (s *Store) versionedUpdate(id string, version int64, set, remove []string, names map[string]string, values map[string]types.AttributeValue) *types.Update {
	allNames := map[string]string{
		"#version":  "Version",
		"#finished": "Finished",
	}
	for k, v := range names {
		allNames[k] = v
	}
	allValues := map[string]types.AttributeValue{
		":one":     &types.AttributeValueMemberN{Value: "1"},
		":version": &types.AttributeValueMemberN{Value: strconv.FormatInt(version, 10)},
		":false":   &types.AttributeValueMemberBOOL{Value: false},
	}
	for k, v := range values {
		allValues[k] = v
	}

	expr := "SET " + strings.Join(append([]string{"#version = #version + :one"}, set...), ", ")
	if len(remove) > 0 {
		expr += " REMOVE " + strings.Join(remove, ", ")
	}

	return &types.Update{
		TableName:                 aws.String(s.tables.Constitutions),
		Key:                       pkKey(id),
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String("#version = :version AND #finished = :false"),
		ExpressionAttributeNames:  allNames,
		ExpressionAttributeValues: allValues,
	}
}

// applyUpdate runs a versioned update outside a transaction
func (s *Store) applyUpdate(ctx context.Context, id string, update *types.Update) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 update.TableName,
		Key:                       update.Key,
		UpdateExpression:          update.UpdateExpression,
		ConditionExpression:       update.ConditionExpression,
		ExpressionAttributeNames:  update.ExpressionAttributeNames,
		ExpressionAttributeValues: update.ExpressionAttributeValues,
	})
	if isConditionFailed(err) {
		return s.versionMiss(ctx, id)
	}
	return err
}

// versionMiss tells a missing or finished constitution apart from a stale version
func (s *Store) versionMiss(ctx context.Context, id string) error {
	item, err := s.getConstitutionItem(ctx, id)
	if err != nil {
		return err
	}
	if item.Finished {
		return repository.ErrNotFound
	}
	return repository.ErrVersionConflict
}

func (s *Store) getConstitutionItem(ctx context.Context, id string) (*constitutionItem, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tables.Constitutions),
		Key:            pkKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, repository.ErrNotFound
	}

	var item constitutionItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateConstitution stores a new constitution at version 1
func (s *Store) CreateConstitution(ctx context.Context, c *models.Constitution) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.Version = 1

	item, err := attributevalue.MarshalMap(toConstitutionItem(c))
	if err != nil {
		return err
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tables.Constitutions),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if isConditionFailed(err) {
		return repository.ErrDuplicate
	}
	return err
}

// GetConstitution returns a constitution, including finished tombstones
func (s *Store) GetConstitution(ctx context.Context, id string) (*models.Constitution, error) {
	item, err := s.getConstitutionItem(ctx, id)
	if err != nil {
		return nil, err
	}
	return item.toModel(), nil
}

// ListConstitutions returns every live constitution, newest first
func (s *Store) ListConstitutions(ctx context.Context) ([]models.Constitution, error) {
	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:                aws.String(s.tables.Constitutions),
		FilterExpression:         aws.String("#finished = :false"),
		ExpressionAttributeNames: map[string]string{"#finished": "Finished"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":false": &types.AttributeValueMemberBOOL{Value: false},
		},
	})

	var constitutions []models.Constitution
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var items []constitutionItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, err
		}
		for _, item := range items {
			constitutions = append(constitutions, *item.toModel())
		}
	}

	sort.SliceStable(constitutions, func(i, j int) bool {
		if !constitutions[i].CreatedAt.Equal(constitutions[j].CreatedAt) {
			return constitutions[i].CreatedAt.After(constitutions[j].CreatedAt)
		}
		return constitutions[i].ID < constitutions[j].ID
	})
	return constitutions, nil
}

// UpdateConstitution applies a partial update if the constitution is still at version
func (s *Store) UpdateConstitution(ctx context.Context, id string, version int64, update models.ConstitutionUpdate) error {
	set, names, values, err := updateClauses(update)
	if err != nil {
		return err
	}
	return s.applyUpdate(ctx, id, s.versionedUpdate(id, version, set, nil, names, values))
}

// updateClauses turns the non-nil fields of update into SET clauses
func updateClauses(update models.ConstitutionUpdate) ([]string, map[string]string, map[string]types.AttributeValue, error) {
	var set []string
	names := map[string]string{}
	values := map[string]types.AttributeValue{}

	add := func(attr string, value any) error {
		av, err := attributevalue.Marshal(value)
		if err != nil {
			return err
		}
		set = append(set, fmt.Sprintf("#%s = :%s", attr, attr))
		names["#"+attr] = attr
		values[":"+attr] = av
		return nil
	}

	if update.IsLocked != nil {
		if err := add("IsLocked", *update.IsLocked); err != nil {
			return nil, nil, nil, err
		}
	}
	if update.IsShowingResult != nil {
		if err := add("IsShowingResult", *update.IsShowingResult); err != nil {
			return nil, nil, nil, err
		}
	}
	if update.WinnerSongID != nil {
		if err := add("WinnerSongID", *update.WinnerSongID); err != nil {
			return nil, nil, nil, err
		}
	}
	if update.WinnerUserID != nil {
		if err := add("WinnerUserID", *update.WinnerUserID); err != nil {
			return nil, nil, nil, err
		}
	}
	if update.YoutubePlaylistID != nil {
		if err := add("YoutubePlaylistID", *update.YoutubePlaylistID); err != nil {
			return nil, nil, nil, err
		}
	}
	if update.Users != nil {
		if err := add("Users", update.Users); err != nil {
			return nil, nil, nil, err
		}
	}
	return set, names, values, nil
}

// DeleteConstitution removes a constitution and its votes
func (s *Store) DeleteConstitution(ctx context.Context, id string) error {
	if err := s.deleteVotes(ctx, id); err != nil {
		return err
	}
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(s.tables.Constitutions),
		Key:                 pkKey(id),
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if isConditionFailed(err) {
		return repository.ErrNotFound
	}
	return err
}

// AddSong appends a song if the constitution is still at version
func (s *Store) AddSong(ctx context.Context, constitutionID string, version int64, song models.Song) error {
	av, err := attributevalue.Marshal(toSongItem(song))
	if err != nil {
		return err
	}
	update := s.versionedUpdate(constitutionID, version,
		[]string{"#songs = list_append(#songs, :song)"}, nil,
		map[string]string{"#songs": "Songs"},
		map[string]types.AttributeValue{":song": &types.AttributeValueMemberL{Value: []types.AttributeValue{av}}})
	return s.applyUpdate(ctx, constitutionID, update)
}

// DeleteSong removes a song and its votes if the constitution is still at
// version. The song, its votes and the cached winner go in one transaction.
func (s *Store) DeleteSong(ctx context.Context, constitutionID string, version int64, songID int) error {
	item, err := s.getConstitutionItem(ctx, constitutionID)
	if err != nil {
		return err
	}
	if item.Finished {
		return repository.ErrNotFound
	}
	if item.Version != version {
		return repository.ErrVersionConflict
	}

	index := -1
	for i, song := range item.Songs {
		if song.ID == songID {
			index = i
			break
		}
	}
	if index < 0 {
		return repository.ErrNotFound
	}

	voteKeys, err := s.songVoteKeys(ctx, constitutionID, songID)
	if err != nil {
		return err
	}
	if len(voteKeys)+1 > maxTransactItems {
		return fmt.Errorf("song %d has %d votes, too many for one transaction", songID, len(voteKeys))
	}

	// The version condition pins the list, so the index is still valid
	set, names, values := clearWinner()
	names["#songs"] = "Songs"
	items := []types.TransactWriteItem{
		{Update: s.versionedUpdate(constitutionID, version, set,
			[]string{fmt.Sprintf("#songs[%d]", index)}, names, values)},
	}
	for _, key := range voteKeys {
		items = append(items, types.TransactWriteItem{
			Delete: &types.Delete{TableName: aws.String(s.tables.Votes), Key: key},
		})
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if isConditionFailed(err) {
		return s.versionMiss(ctx, constitutionID)
	}
	return err
}

// clearWinner returns the update clauses that reset the cached winner
func clearWinner() ([]string, map[string]string, map[string]types.AttributeValue) {
	return []string{"#winnerSong = :noWinnerSong", "#winnerUser = :noWinnerUser"},
		map[string]string{"#winnerSong": "WinnerSongID", "#winnerUser": "WinnerUserID"},
		map[string]types.AttributeValue{
			":noWinnerSong": &types.AttributeValueMemberN{Value: strconv.Itoa(models.NoWinnerSongID)},
			":noWinnerUser": &types.AttributeValueMemberS{Value: ""},
		}
}
