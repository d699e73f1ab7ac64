//go:build e2e

// Package e2e contains end-to-end integration tests using real DynamoDB tables.
// Run with: go test -tags=e2e -v ./e2e/...
package e2e

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/lgphp/activedoc/docstore"
	"github.com/lgphp/activedoc/odm"
)

// Test configuration
const (
	profileEnv = "ACTIVEDOC_E2E_PROFILE"

	// Table names - unique per test run to avoid conflicts
	tablePrefix = "activedoc-e2e-"
)

var (
	testID    string
	ddbClient *dynamodb.Client
	mapper    *odm.Mapper
)

// UserAccountObject maps to the user_account collection.
type UserAccountObject struct {
	odm.Record
	Name         string    `field:"name=name"`
	CreatedAt    time.Time `field:"name=created_at"`
	UpdatedAt    time.Time `field:"name=updated_at"`
	LockRevision int64     `field:"name=lock_revision"`
}

func TestMain(m *testing.M) {
	ctx := context.Background()

	opts := []func(*config.LoadOptions) error{}
	if profile := os.Getenv(profileEnv); profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load AWS config: %v\n", err)
		os.Exit(1)
	}
	ddbClient = dynamodb.NewFromConfig(cfg)

	testID = uuid.NewString()[:8]
	prefix := tablePrefix + testID + "-"

	if err := createTable(ctx, prefix+"user_account"); err != nil {
		fmt.Fprintf(os.Stderr, "create table: %v\n", err)
		os.Exit(1)
	}

	store := docstore.NewDynamoStore(ddbClient, docstore.DynamoConfig{
		TablePrefix: prefix,
	})
	mapper = odm.NewMapper(store, nil)

	code := m.Run()

	_, _ = ddbClient.DeleteTable(ctx, &dynamodb.DeleteTableInput{
		TableName: aws.String(prefix + "user_account"),
	})
	os.Exit(code)
}

func createTable(ctx context.Context, name string) error {
	_, err := ddbClient.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(name),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(odm.IdentityKey), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(odm.IdentityKey), KeyType: types.KeyTypeHash},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return err
	}

	waiter := dynamodb.NewTableExistsWaiter(ddbClient)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(name),
	}, 2*time.Minute)
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()

	rec := &UserAccountObject{Name: "alice"}
	ok, err := mapper.Create(ctx, rec)
	if err != nil || !ok {
		t.Fatalf("create: ok=%v err=%v", ok, err)
	}
	if rec.IsNew() {
		t.Fatal("expected identity after create")
	}
	if rec.LockRevision != 1 {
		t.Errorf("expected revision 1, got %d", rec.LockRevision)
	}

	rec.Name = "alicia"
	ok, err = mapper.Update(ctx, rec)
	if err != nil || !ok {
		t.Fatalf("update: ok=%v err=%v", ok, err)
	}
	if rec.LockRevision != 2 {
		t.Errorf("expected revision 2, got %d", rec.LockRevision)
	}

	ok, err = mapper.Reload(ctx, rec)
	if err != nil || !ok {
		t.Fatalf("reload: ok=%v err=%v", ok, err)
	}
	if rec.Name != "alicia" {
		t.Errorf("expected reloaded name 'alicia', got %q", rec.Name)
	}

	ok, err = mapper.Remove(ctx, rec)
	if err != nil || !ok {
		t.Fatalf("remove: ok=%v err=%v", ok, err)
	}
	if !rec.IsNew() {
		t.Error("expected cleared identity after remove")
	}
}

func TestConcurrentUpdateConflict(t *testing.T) {
	ctx := context.Background()

	first := &UserAccountObject{Name: "bob"}
	if ok, err := mapper.Create(ctx, first); err != nil || !ok {
		t.Fatalf("create: ok=%v err=%v", ok, err)
	}

	second := &UserAccountObject{}
	if err := mapper.LoadFromDocument(second, first.Document()); err != nil {
		t.Fatalf("load: %v", err)
	}

	first.Name = "first-writer"
	if ok, err := mapper.Update(ctx, first); err != nil || !ok {
		t.Fatalf("first update must win: ok=%v err=%v", ok, err)
	}

	second.Name = "second-writer"
	if _, err := mapper.Update(ctx, second); !errors.Is(err, odm.ErrConcurrencyConflict) {
		t.Errorf("expected ErrConcurrencyConflict for the losing writer, got %v", err)
	}

	if ok, err := mapper.Remove(ctx, first); err != nil || !ok {
		t.Fatalf("cleanup remove: ok=%v err=%v", ok, err)
	}
}

func TestRemoveDeletedOutOfBand(t *testing.T) {
	ctx := context.Background()

	rec := &UserAccountObject{Name: "carol"}
	if ok, err := mapper.Create(ctx, rec); err != nil || !ok {
		t.Fatalf("create: ok=%v err=%v", ok, err)
	}

	// Delete behind the record's back.
	twin := &UserAccountObject{}
	if err := mapper.LoadFromDocument(twin, rec.Document()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok, err := mapper.Remove(ctx, twin); err != nil || !ok {
		t.Fatalf("out-of-band remove: ok=%v err=%v", ok, err)
	}

	// The stale record still carries a revision, so this is a conflict.
	_, err := mapper.Remove(ctx, rec)
	if !errors.Is(err, odm.ErrConcurrencyConflict) {
		t.Errorf("expected ErrConcurrencyConflict, got %v", err)
	}
	if !rec.IsNew() {
		t.Error("expected local state cleared despite the conflict")
	}
}
