// Package dynamostore reads items by partition key from DynamoDB.
//
// The entity's table name is the DynamoDB table name and its primary-key
// name is the partition key attribute. Integer ids are sent as N attributes,
// string ids as S. Tables with a sort key are not supported.
package dynamostore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/unkn0wn-root/rowcache"
)

// batchLimit is DynamoDB's per-request BatchGetItem key limit.
const batchLimit = 100

// Client is the subset of *dynamodb.Client the store uses.
type Client interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	BatchGetItem(ctx context.Context, in *dynamodb.BatchGetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
}

type Store struct {
	client         Client
	consistentRead bool
	maxRetries     int
	backoff        time.Duration
}

var _ rowcache.RecordStore = (*Store)(nil)

type Config struct {
	Client         Client
	ConsistentRead bool
	MaxRetries     int           // retries for unprocessed keys; default 5
	Backoff        time.Duration // first retry delay, doubled per retry; default 50ms
}

func New(cfg Config) (*Store, error) {
	if cfg.Client == nil {
		return nil, errors.New("dynamostore: nil client")
	}
	s := &Store{client: cfg.Client, consistentRead: cfg.ConsistentRead, maxRetries: cfg.MaxRetries, backoff: cfg.Backoff}
	if s.maxRetries <= 0 {
		s.maxRetries = 5
	}
	if s.backoff <= 0 {
		s.backoff = 50 * time.Millisecond
	}
	return s, nil
}

func (s *Store) FindByPrimaryKey(ctx context.Context, table, primaryKey string, id rowcache.ID) (rowcache.Row, bool, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &table,
		Key:            map[string]types.AttributeValue{primaryKey: keyValue(id)},
		ConsistentRead: &s.consistentRead,
	})
	if err != nil {
		return nil, false, fmt.Errorf("dynamostore: get %s %s: %w", table, id, err)
	}
	if len(out.Item) == 0 {
		return nil, false, nil
	}
	row, err := toRow(out.Item)
	if err != nil {
		return nil, false, fmt.Errorf("dynamostore: decode %s %s: %w", table, id, err)
	}
	return row, true, nil
}

// FindManyByPrimaryKey issues BatchGetItem in chunks of 100 keys and retries
// unprocessed keys with exponential backoff. Repeated ids are requested once,
// since DynamoDB rejects batches with duplicate keys. Result order is
// unspecified.
func (s *Store) FindManyByPrimaryKey(ctx context.Context, table, primaryKey string, ids []rowcache.ID) ([]rowcache.Row, error) {
	ids = distinct(ids)
	var out []rowcache.Row
	for start := 0; start < len(ids); start += batchLimit {
		end := min(start+batchLimit, len(ids))
		keys := make([]map[string]types.AttributeValue, 0, end-start)
		for _, id := range ids[start:end] {
			keys = append(keys, map[string]types.AttributeValue{primaryKey: keyValue(id)})
		}
		rows, err := s.batchGet(ctx, table, keys)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

// distinct drops repeated ids, keeping first-seen order. IntID(3) and
// StringID("3") are different keys (N vs S).
func distinct(ids []rowcache.ID) []rowcache.ID {
	type seenKey struct {
		num bool
		v   string
	}
	seen := make(map[seenKey]struct{}, len(ids))
	out := make([]rowcache.ID, 0, len(ids))
	for _, id := range ids {
		k := seenKey{id.IsInt(), id.String()}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (s *Store) batchGet(ctx context.Context, table string, keys []map[string]types.AttributeValue) ([]rowcache.Row, error) {
	var out []rowcache.Row
	delay := s.backoff
	for attempt := 0; ; attempt++ {
		resp, err := s.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{
			RequestItems: map[string]types.KeysAndAttributes{
				table: {Keys: keys, ConsistentRead: &s.consistentRead},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("dynamostore: batch get %s: %w", table, err)
		}
		for _, item := range resp.Responses[table] {
			row, err := toRow(item)
			if err != nil {
				return nil, fmt.Errorf("dynamostore: decode %s: %w", table, err)
			}
			out = append(out, row)
		}

		keys = resp.UnprocessedKeys[table].Keys
		if len(keys) == 0 {
			return out, nil
		}
		if attempt >= s.maxRetries {
			return nil, fmt.Errorf("dynamostore: batch get %s: %d keys unprocessed after %d retries", table, len(keys), attempt)
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
		delay *= 2
	}
}

func keyValue(id rowcache.ID) types.AttributeValue {
	if id.IsInt() {
		return &types.AttributeValueMemberN{Value: id.String()}
	}
	return &types.AttributeValueMemberS{Value: id.String()}
}

// toRow decodes an item keeping numbers exact. Top-level numbers become
// json.Number; nested ones stay attributevalue.Number.
func toRow(item map[string]types.AttributeValue) (rowcache.Row, error) {
	var m map[string]any
	err := attributevalue.UnmarshalMapWithOptions(item, &m, func(o *attributevalue.DecoderOptions) {
		o.UseNumber = true
	})
	if err != nil {
		return nil, err
	}
	for k, v := range m {
		if n, ok := v.(attributevalue.Number); ok {
			m[k] = json.Number(n)
		}
	}
	return rowcache.Row(m), nil
}
