package dynamo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/matbactivity/songconstitution/internal/models"
	"github.com/matbactivity/songconstitution/internal/repository"
)

// ArchiveConstitution writes the history record and marks the constitution
// finished in one transaction, then removes its votes and record. A failure
// after the transaction returns repository.ErrCleanupPending.
func (s *Store) ArchiveConstitution(ctx context.Context, id string, version int64, record models.HistoryRecord) error {
	if record.ArchivedAt.IsZero() {
		record.ArchivedAt = time.Now().UTC()
	}
	item, err := attributevalue.MarshalMap(toHistoryItem(id, record))
	if err != nil {
		return err
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(s.tables.History),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(PK)"),
			}},
			{Update: s.versionedUpdate(id, version, []string{"#finished = :true"}, nil, nil,
				map[string]types.AttributeValue{":true": &types.AttributeValueMemberBOOL{Value: true}})},
		},
	})
	if conditionFailedAt(err, 0) {
		return repository.ErrDuplicate
	}
	if isConditionFailed(err) {
		return s.versionMiss(ctx, id)
	}
	if err != nil {
		return err
	}

	if err := s.removeLive(ctx, id); err != nil {
		s.log.Warn("Archive cleanup incomplete", "constitution_id", id, "error", err)
		return fmt.Errorf("%w: %v", repository.ErrCleanupPending, err)
	}
	return nil
}

// removeLive deletes the votes and then the record of a finished constitution
func (s *Store) removeLive(ctx context.Context, id string) error {
	if err := s.deleteVotes(ctx, id); err != nil {
		return err
	}
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(s.tables.Constitutions),
		Key:                      pkKey(id),
		ConditionExpression:      aws.String("#finished = :true"),
		ExpressionAttributeNames: map[string]string{"#finished": "Finished"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":true": &types.AttributeValueMemberBOOL{Value: true},
		},
	})
	if isConditionFailed(err) {
		return repository.ErrNotFound
	}
	return err
}

// ListPendingCleanups returns the ids of finished constitutions still stored
func (s *Store) ListPendingCleanups(ctx context.Context) ([]string, error) {
	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:                aws.String(s.tables.Constitutions),
		FilterExpression:         aws.String("#finished = :true"),
		ProjectionExpression:     aws.String("PK"),
		ExpressionAttributeNames: map[string]string{"#finished": "Finished"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":true": &types.AttributeValueMemberBOOL{Value: true},
		},
	})

	var ids []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			var id string
			if err := attributevalue.Unmarshal(item["PK"], &id); err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// CleanupConstitution removes the live documents of a finished constitution
func (s *Store) CleanupConstitution(ctx context.Context, id string) error {
	item, err := s.getConstitutionItem(ctx, id)
	if err != nil {
		return err
	}
	if !item.Finished {
		return repository.ErrNotFound
	}
	return s.removeLive(ctx, id)
}

// ListHistory returns archived constitutions, most recent first
func (s *Store) ListHistory(ctx context.Context) ([]models.HistoryRecord, error) {
	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName: aws.String(s.tables.History),
	})

	var records []models.HistoryRecord
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var items []historyItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, err
		}
		for _, item := range items {
			records = append(records, item.toModel())
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].ArchivedAt.Equal(records[j].ArchivedAt) {
			return records[i].ArchivedAt.After(records[j].ArchivedAt)
		}
		return records[i].ID < records[j].ID
	})
	return records, nil
}

// GetHistory returns one history record
func (s *Store) GetHistory(ctx context.Context, id string) (*models.HistoryRecord, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tables.History),
		Key:       pkKey(id),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, repository.ErrNotFound
	}

	var item historyItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, err
	}
	record := item.toModel()
	return &record, nil
}
