// Package repository persists session state in a DynamoDB single-table
// layout. One load and one save per turn; the save is a single conditional
// write so a turn either fully commits or leaves nothing behind.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"interview-agent/internal/domain"
)

const (
	skState     = "STATE#"
	ttlDuration = 30 * 24 * time.Hour // retention window; actual deletion is DynamoDB's concern
)

// ErrRevisionConflict reports a save that lost a race with another turn for
// the same session. The core assumes one in-flight turn per session; the
// optimistic check makes a violated assumption loud instead of losing writes.
var ErrRevisionConflict = errors.New("repository: session revision conflict")

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Client wraps a DynamoDB table holding interview session state.
type Client struct {
	api       dynamodbAPI
	tableName string
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName}, nil
}

// sessionPK returns the DynamoDB partition key for a session.
func sessionPK(sessionID string) string {
	return "SESSION#" + sessionID
}

// ttlValue returns a Unix timestamp at the end of the retention window.
func ttlValue() int64 {
	return time.Now().Add(ttlDuration).Unix()
}

// LoadSession fetches the persisted state for a session. found is false when
// no state exists yet; the caller materializes a fresh workflow in that case.
func (c *Client) LoadSession(ctx context.Context, sessionID string) (domain.SessionState, bool, error) {
	if strings.TrimSpace(sessionID) == "" {
		return domain.SessionState{}, false, errors.New("repository: session id must not be empty")
	}

	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: sessionPK(sessionID)},
			"SK": &types.AttributeValueMemberS{Value: skState},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.SessionState{}, false, fmt.Errorf("repository: LoadSession get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.SessionState{}, false, nil
	}

	doc, err := strAttr(out.Item, "state")
	if err != nil {
		return domain.SessionState{}, false, fmt.Errorf("repository: LoadSession: %w", err)
	}

	var state domain.SessionState
	if err := json.Unmarshal([]byte(doc), &state); err != nil {
		return domain.SessionState{}, false, fmt.Errorf("repository: LoadSession decode state: %w", err)
	}
	return state, true, nil
}

// SaveSession writes the full session state as one item. The revision check
// rejects writes racing a concurrent turn; state.Revision is the revision
// that was loaded, and the stored item carries Revision+1.
func (c *Client) SaveSession(ctx context.Context, sessionID string, state domain.SessionState) error {
	if strings.TrimSpace(sessionID) == "" {
		return errors.New("repository: session id must not be empty")
	}

	loadedRevision := state.Revision
	state.Revision = loadedRevision + 1

	doc, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("repository: SaveSession encode state: %w", err)
	}

	in := &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item: map[string]types.AttributeValue{
			"PK":           &types.AttributeValueMemberS{Value: sessionPK(sessionID)},
			"SK":           &types.AttributeValueMemberS{Value: skState},
			"sessionId":    &types.AttributeValueMemberS{Value: sessionID},
			"state":        &types.AttributeValueMemberS{Value: string(doc)},
			"revision":     &types.AttributeValueMemberN{Value: strconv.Itoa(state.Revision)},
			"turns":        &types.AttributeValueMemberN{Value: strconv.Itoa(state.TotalTurns)},
			"finished":     &types.AttributeValueMemberBOOL{Value: state.Finished},
			"lastActivity": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
			"ttl":          &types.AttributeValueMemberN{Value: strconv.FormatInt(ttlValue(), 10)},
		},
		ConditionExpression: aws.String("attribute_not_exists(PK) OR revision = :loaded"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":loaded": &types.AttributeValueMemberN{Value: strconv.Itoa(loadedRevision)},
		},
	}

	if _, err := c.api.PutItem(ctx, in); err != nil {
		var cond *types.ConditionalCheckFailedException
		if errors.As(err, &cond) {
			return ErrRevisionConflict
		}
		return fmt.Errorf("repository: SaveSession: %w", err)
	}
	return nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}
