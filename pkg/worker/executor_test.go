package worker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ostren/ember/pkg/embedding"
	"github.com/ostren/ember/pkg/errors"
	"github.com/ostren/ember/pkg/structs"
)

func TestRegistryRegister(t *testing.T) {
	reg := NewRegistry()
	ex := &stubExecutor{}

	require.Nil(t, reg.Register("embed", ex))

	assert.Equal(t, ex, reg.Get("embed"))
	assert.Nil(t, reg.Get("other"))
	assert.Equal(t, []string{"embed"}, reg.Ops())
}

func TestRegistryRejectsDuplicate(t *testing.T) {
	reg := NewRegistry()
	require.Nil(t, reg.Register("embed", &stubExecutor{}))

	err := reg.Register("embed", &stubExecutor{})

	assert.ErrorIs(t, err, errors.ErrNotSupported)
}

func TestRegistryRejectsEmptyOp(t *testing.T) {
	reg := NewRegistry()

	err := reg.Register("", &stubExecutor{})

	assert.ErrorIs(t, err, errors.ErrNoOp)
}

func TestEmbedExecute(t *testing.T) {
	ex := NewEmbedExecutor(embedding.NewLocal(64))
	job := &structs.Job{
		ID:      "j1",
		JobSpec: structs.JobSpec{Op: OpEmbed, Args: json.RawMessage(`{"text": "hello world"}`)},
	}

	data, err := ex.Execute(context.Background(), job)
	require.Nil(t, err)

	result := embedResult{}
	require.Nil(t, json.Unmarshal(data, &result))
	assert.Equal(t, 64, result.Dimension)
	assert.Equal(t, []string{"hello world"}, result.Texts)
	require.Len(t, result.Vectors, 1)
	assert.Len(t, result.Vectors[0], 64)
}

func TestEmbedExecuteManyTexts(t *testing.T) {
	ex := NewEmbedExecutor(embedding.NewLocal(64))
	job := &structs.Job{
		ID:      "j1",
		JobSpec: structs.JobSpec{Op: OpEmbed, Args: json.RawMessage(`{"texts": ["one", "two"]}`)},
	}

	data, err := ex.Execute(context.Background(), job)
	require.Nil(t, err)

	result := embedResult{}
	require.Nil(t, json.Unmarshal(data, &result))
	assert.Len(t, result.Vectors, 2)
}

func TestEmbedExecuteBadArgs(t *testing.T) {
	ex := NewEmbedExecutor(embedding.NewLocal(64))

	cases := []struct {
		Name string
		Args string
	}{
		{"NotJson", `not json`},
		{"Empty", `{}`},
		{"NoText", `{"texts": []}`},
	}

	for _, tt := range cases {
		t.Run(tt.Name, func(t *testing.T) {
			job := &structs.Job{
				ID:      "j1",
				JobSpec: structs.JobSpec{Op: OpEmbed, Args: json.RawMessage(tt.Args)},
			}

			_, err := ex.Execute(context.Background(), job)

			assert.ErrorIs(t, err, errors.ErrInvalidRequest)
		})
	}
}

func TestEmbedIndexContent(t *testing.T) {
	ex := NewEmbedExecutor(embedding.NewLocal(64))

	assert.Equal(t, "hello", ex.IndexContent(&structs.Job{
		JobSpec: structs.JobSpec{Args: json.RawMessage(`{"text": "hello"}`)},
	}))
	assert.Equal(t, "one", ex.IndexContent(&structs.Job{
		JobSpec: structs.JobSpec{Args: json.RawMessage(`{"texts": ["one", "two"]}`)},
	}))
	assert.Equal(t, "", ex.IndexContent(&structs.Job{
		JobSpec: structs.JobSpec{Args: json.RawMessage(`{}`)},
	}))
}
