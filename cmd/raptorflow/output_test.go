package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/engine"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/internal/config"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/internal/scenario"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/internal/testutil"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func restaurantPipeline(t *testing.T) *engine.Pipeline {
	t.Helper()
	f := testutil.NewFixture(t)
	f.ScriptRestaurant()
	p, err := engine.New(f.Provider).Execute(context.Background(), scenario.RestaurantSubject, scenario.RestaurantDescription, nil)
	require.NoError(t, err)
	return p
}

func TestWrite_YAML(t *testing.T) {
	p := restaurantPipeline(t)

	var buf bytes.Buffer
	require.NoError(t, write(&buf, p, "yaml", false))

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	selected := doc["selected_option"].(map[string]any)
	assert.Equal(t, "Family", selected["word_to_own"])
	assert.NotContains(t, buf.String(), "embedding:")
	assert.NotContains(t, buf.String(), "trace.")
}

func TestWrite_JSONWithEmbeddings(t *testing.T) {
	p := restaurantPipeline(t)

	var buf bytes.Buffer
	require.NoError(t, write(&buf, p, "json", true))

	var doc struct {
		ICP struct {
			Personas []struct {
				Embedding []float32 `json:"embedding"`
			} `json:"personas"`
		} `json:"icp"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.ICP.Personas, 3)
	assert.Len(t, doc.ICP.Personas[0].Embedding, scenario.Dimensions)
}

func TestWrite_UnknownFormat(t *testing.T) {
	assert.Error(t, write(&bytes.Buffer{}, restaurantPipeline(t), "xml", false))
}

func TestCapabilities_Mock(t *testing.T) {
	cfg := &config.Config{Provider: config.ProviderMock, CallTimeout: 5e9}
	caps, dims, err := capabilities(cfg, logging.NoOpLogger{})
	require.NoError(t, err)
	assert.Equal(t, scenario.Dimensions, dims)
	assert.Equal(t, scenario.Dimensions, caps.Dimensions())
}
