package sharekit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestRegistryDefineEntity tests the fluent entity definition API
func TestRegistryDefineEntity(t *testing.T) {
	store := NewFixtureStore()
	registry := NewRegistry()

	registry.DefineEntity("document").
		Lookup(store.Lookup("document")).
		DefineEntity("event").
		Lookup(store.Lookup("event"))

	assert.NotNil(t, registry.GetEntity("document"))
	assert.NotNil(t, registry.GetEntity("event"))
	assert.Nil(t, registry.GetEntity("folder"))
	assert.Equal(t, "document", registry.GetEntity("document").Name())
	assert.ElementsMatch(t, []string{"document", "event"}, registry.Types())
}

// TestRegistryValidateType tests type validation
func TestRegistryValidateType(t *testing.T) {
	registry := NewRegistry()
	registry.DefineEntity("document")

	assert.NoError(t, registry.ValidateType("document"))

	err := registry.ValidateType("folder")
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidEntityType)
	assert.True(t, IsValidation(err))
}

// TestRegistryLookupEntity tests entity lookup through the registry
func TestRegistryLookupEntity(t *testing.T) {
	store := NewFixtureStore()
	store.Add(&FixtureEntity{ID: "doc1", TypeTag: "document", Title: "Report", Owner: "owner1"})

	registry := NewRegistry()
	registry.DefineEntity("document").Lookup(store.Lookup("document"))

	entity, err := registry.LookupEntity(context.Background(), NewEntityRef("document", "doc1"))
	assert.NoError(t, err)
	assert.Equal(t, "Report", entity.DisplayTitle())

	// Missing entity
	_, err = registry.LookupEntity(context.Background(), NewEntityRef("document", "doc2"))
	assert.True(t, IsNotFound(err))

	// Unregistered type
	_, err = registry.LookupEntity(context.Background(), NewEntityRef("folder", "f1"))
	assert.True(t, IsNotFound(err))
}

// TestRegistryLookupFaultFailsClosed tests that a faulting lookup surfaces
// as NotFound, never as the raw fault
func TestRegistryLookupFaultFailsClosed(t *testing.T) {
	registry := NewRegistry()
	registry.DefineEntity("document").Lookup(func(ctx context.Context, id string) (Entity, error) {
		return nil, errors.New("connection refused")
	})

	_, err := registry.LookupEntity(context.Background(), NewEntityRef("document", "doc1"))
	assert.True(t, IsNotFound(err))
	assert.NotContains(t, err.Error(), "connection refused")
}

// TestRegistryLookupNilEntity tests that a nil entity with nil error is
// treated as missing
func TestRegistryLookupNilEntity(t *testing.T) {
	registry := NewRegistry()
	registry.DefineEntity("document").Lookup(func(ctx context.Context, id string) (Entity, error) {
		return nil, nil
	})

	_, err := registry.LookupEntity(context.Background(), NewEntityRef("document", "doc1"))
	assert.True(t, IsNotFound(err))
}

// TestRegistryLookupWithoutFunc tests a type defined without a lookup
func TestRegistryLookupWithoutFunc(t *testing.T) {
	registry := NewRegistry()
	registry.DefineEntity("document")

	_, err := registry.LookupEntity(context.Background(), NewEntityRef("document", "doc1"))
	assert.True(t, IsNotFound(err))
}
