package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed seed.schema.json
var seedSchemaJSON string

//go:embed seed_default.json
var defaultSeed []byte

var (
	seedSchemaOnce sync.Once
	seedSchema     *jsonschema.Schema
	seedSchemaErr  error
)

func compiledSeedSchema() (*jsonschema.Schema, error) {
	seedSchemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource("seed.schema.json", strings.NewReader(seedSchemaJSON)); err != nil {
			seedSchemaErr = err
			return
		}
		seedSchema, seedSchemaErr = c.Compile("seed.schema.json")
	})
	return seedSchema, seedSchemaErr
}

// ParseSeed reads a JSON array of products and validates it against the seed
// schema before decoding.
func ParseSeed(r io.Reader) ([]NewProduct, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	schema, err := compiledSeedSchema()
	if err != nil {
		return nil, fmt.Errorf("seed schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProduct, err)
	}
	var out []NewProduct
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	return out, nil
}

// DefaultSeed is the stock product list shipped with the binary.
func DefaultSeed() []NewProduct {
	out, err := ParseSeed(bytes.NewReader(defaultSeed))
	if err != nil {
		panic(err)
	}
	return out
}

// Seed creates every product in order. It stops at the first failure and
// returns what was created so far.
func Seed(ctx context.Context, store Store, items []NewProduct) ([]Product, error) {
	created := make([]Product, 0, len(items))
	for i, in := range items {
		p, err := store.Create(ctx, in)
		if err != nil {
			return created, fmt.Errorf("seed item %d (%s): %w", i, in.Name, err)
		}
		created = append(created, *p)
	}
	return created, nil
}
