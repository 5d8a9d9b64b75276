package dynamo

import (
	"context"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/matbactivity/songconstitution/internal/models"
	"github.com/matbactivity/songconstitution/internal/repository"
)

// batchGetLimit is the maximum number of keys in one BatchGetItem call
const batchGetLimit = 100

// defaultSettings are returned when a key has never been set
var defaultSettings = map[string]string{
	"score_min": "0",
	"score_max": "10",
}

func (s *Store) getUserItem(ctx context.Context, key string) (*models.User, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tables.Users),
		Key:       pkKey(key),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, repository.ErrNotFound
	}

	var item userItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, err
	}
	return &models.User{UID: item.UID, DisplayName: item.DisplayName}, nil
}

// GetUser returns a user by uid
func (s *Store) GetUser(ctx context.Context, uid string) (*models.User, error) {
	return s.getUserItem(ctx, userKey(uid))
}

// GetUserByDisplayName returns a user by case-insensitive display name
func (s *Store) GetUserByDisplayName(ctx context.Context, displayName string) (*models.User, error) {
	return s.getUserItem(ctx, displayNameKey(displayName))
}

// CreateUser stores the user and reserves its display name in one transaction
func (s *Store) CreateUser(ctx context.Context, user models.User) error {
	byUID, err := attributevalue.MarshalMap(userItem{Key: userKey(user.UID), UID: user.UID, DisplayName: user.DisplayName})
	if err != nil {
		return err
	}
	byName, err := attributevalue.MarshalMap(userItem{Key: displayNameKey(user.DisplayName), UID: user.UID, DisplayName: user.DisplayName})
	if err != nil {
		return err
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(s.tables.Users),
				Item:                byUID,
				ConditionExpression: aws.String("attribute_not_exists(PK)"),
			}},
			{Put: &types.Put{
				TableName:           aws.String(s.tables.Users),
				Item:                byName,
				ConditionExpression: aws.String("attribute_not_exists(PK)"),
			}},
		},
	})
	if isConditionFailed(err) {
		return repository.ErrDuplicate
	}
	return err
}

// ListUsers returns the users with the given uids. Unknown uids are skipped.
func (s *Store) ListUsers(ctx context.Context, uids []string) ([]models.User, error) {
	var users []models.User
	for start := 0; start < len(uids); start += batchGetLimit {
		end := start + batchGetLimit
		if end > len(uids) {
			end = len(uids)
		}

		keys := make([]map[string]types.AttributeValue, 0, end-start)
		for _, uid := range uids[start:end] {
			keys = append(keys, pkKey(userKey(uid)))
		}

		request := map[string]types.KeysAndAttributes{s.tables.Users: {Keys: keys}}
		for attempt := 0; len(request) > 0 && attempt <= maxUnprocessedRetries; attempt++ {
			out, err := s.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: request})
			if err != nil {
				return nil, err
			}
			var items []userItem
			if err := attributevalue.UnmarshalListOfMaps(out.Responses[s.tables.Users], &items); err != nil {
				return nil, err
			}
			for _, item := range items {
				users = append(users, models.User{UID: item.UID, DisplayName: item.DisplayName})
			}
			request = out.UnprocessedKeys
		}
	}

	sort.SliceStable(users, func(i, j int) bool {
		return strings.ToLower(users[i].DisplayName) < strings.ToLower(users[j].DisplayName)
	})
	return users, nil
}

// GetSetting retrieves a setting value
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tables.Settings),
		Key:       pkKey(key),
	})
	if err != nil {
		return "", err
	}
	if out.Item == nil {
		if value, ok := defaultSettings[key]; ok {
			return value, nil
		}
		return "", repository.ErrNotFound
	}

	var item settingItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return "", err
	}
	return item.Value, nil
}

// SetSetting updates a setting value
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	item, err := attributevalue.MarshalMap(settingItem{Key: key, Value: value})
	if err != nil {
		return err
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tables.Settings),
		Item:      item,
	})
	return err
}
