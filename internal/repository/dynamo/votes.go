package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"golang.org/x/sync/errgroup"

	"github.com/matbactivity/songconstitution/internal/models"
)

// batchWriteLimit is the maximum number of requests in one BatchWriteItem call
const batchWriteLimit = 25

// maxUnprocessedRetries bounds resubmission of unprocessed batch items
const maxUnprocessedRetries = 5

// maxTransactItems is the maximum number of items in one TransactWriteItems call
const maxTransactItems = 100

func (s *Store) votesQuery(constitutionID string) *dynamodb.QueryInput {
	return &dynamodb.QueryInput{
		TableName:              aws.String(s.tables.Votes),
		KeyConditionExpression: aws.String("PK = :cid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":cid": &types.AttributeValueMemberS{Value: constitutionID},
		},
		ConsistentRead: aws.Bool(true),
	}
}

// ListVotes returns every vote of a constitution
func (s *Store) ListVotes(ctx context.Context, constitutionID string) ([]models.Vote, error) {
	paginator := dynamodb.NewQueryPaginator(s.client, s.votesQuery(constitutionID))

	var votes []models.Vote
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var items []voteItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, err
		}
		for _, item := range items {
			votes = append(votes, item.toModel())
		}
	}
	return votes, nil
}

// CountVotes returns the number of votes of a constitution
func (s *Store) CountVotes(ctx context.Context, constitutionID string) (int, error) {
	input := s.votesQuery(constitutionID)
	input.Select = types.SelectCount
	paginator := dynamodb.NewQueryPaginator(s.client, input)

	count := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, err
		}
		count += int(page.Count)
	}
	return count, nil
}

// SaveVote writes the vote, clears the cached winner and bumps the
// constitution version in one transaction
func (s *Store) SaveVote(ctx context.Context, constitutionID string, version int64, vote models.Vote) error {
	if vote.UpdatedAt.IsZero() {
		vote.UpdatedAt = time.Now().UTC()
	}
	item, err := attributevalue.MarshalMap(toVoteItem(constitutionID, vote))
	if err != nil {
		return err
	}

	set, names, values := clearWinner()
	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Update: s.versionedUpdate(constitutionID, version, set, nil, names, values)},
			{Put: &types.Put{
				TableName: aws.String(s.tables.Votes),
				Item:      item,
			}},
		},
	})
	if isConditionFailed(err) {
		return s.versionMiss(ctx, constitutionID)
	}
	return err
}

// songVoteKeys returns the keys of every vote on one song
func (s *Store) songVoteKeys(ctx context.Context, constitutionID string, songID int) ([]map[string]types.AttributeValue, error) {
	input := s.votesQuery(constitutionID)
	input.KeyConditionExpression = aws.String("PK = :cid AND begins_with(SK, :song)")
	input.ExpressionAttributeValues[":song"] = &types.AttributeValueMemberS{Value: fmt.Sprintf("%d#", songID)}
	input.ProjectionExpression = aws.String("PK, SK")
	paginator := dynamodb.NewQueryPaginator(s.client, input)

	var keys []map[string]types.AttributeValue
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			keys = append(keys, map[string]types.AttributeValue{"PK": item["PK"], "SK": item["SK"]})
		}
	}
	return keys, nil
}

// deleteVotes removes every vote of a constitution, fanning batches out in parallel
func (s *Store) deleteVotes(ctx context.Context, constitutionID string) error {
	input := s.votesQuery(constitutionID)
	input.ProjectionExpression = aws.String("PK, SK")
	paginator := dynamodb.NewQueryPaginator(s.client, input)

	var requests []types.WriteRequest
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return err
		}
		for _, item := range page.Items {
			requests = append(requests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{
					Key: map[string]types.AttributeValue{
						"PK": item["PK"],
						"SK": item["SK"],
					},
				},
			})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchConcurrency)
	for _, chunk := range chunkRequests(requests, batchWriteLimit) {
		g.Go(func() error {
			return s.batchWrite(gctx, s.tables.Votes, chunk)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if len(requests) > 0 {
		s.log.Debug("Deleted votes", "constitution_id", constitutionID, "count", len(requests))
	}
	return nil
}

// batchWrite submits one batch, resubmitting unprocessed items a few times
func (s *Store) batchWrite(ctx context.Context, table string, requests []types.WriteRequest) error {
	pending := requests
	for attempt := 0; attempt <= maxUnprocessedRetries; attempt++ {
		out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{table: pending},
		})
		if err != nil {
			return err
		}
		pending = out.UnprocessedItems[table]
		if len(pending) == 0 {
			return nil
		}
	}
	return fmt.Errorf("%d items left unprocessed in %s", len(pending), table)
}

func chunkRequests(requests []types.WriteRequest, size int) [][]types.WriteRequest {
	var chunks [][]types.WriteRequest
	for i := 0; i < len(requests); i += size {
		end := i + size
		if end > len(requests) {
			end = len(requests)
		}
		chunks = append(chunks, requests[i:end])
	}
	return chunks
}
