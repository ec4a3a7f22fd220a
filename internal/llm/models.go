package llm

import (
	"context"
	"fmt"
	"strings"
)

// ListModels returns the ids of all models visible to the API key.
func (c *OpenAIClient) ListModels(ctx context.Context) ([]string, error) {
	const op = "ListModels"

	list, err := c.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// SelectModel lists the available models and switches to the first candidate
// that is among them.
func (c *OpenAIClient) SelectModel(ctx context.Context, candidates []string) (string, error) {
	const op = "SelectModel"

	available, err := c.ListModels(ctx)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	c.log.Debug().Strs("models", available).Msg("Listed available models")

	model, err := PickModel(candidates, available)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	c.log.Info().Str("model", model).Msg("Using model")
	c.UseModel(model)
	return model, nil
}

// PickModel returns the first candidate present in available. Names are
// compared case-insensitively and a "models/" prefix is ignored.
func PickModel(candidates, available []string) (string, error) {
	have := make(map[string]bool, len(available))
	for _, m := range available {
		have[canonicalModel(m)] = true
	}
	for _, c := range candidates {
		if have[canonicalModel(c)] {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w (tried %s)", ErrNoModel, strings.Join(candidates, ", "))
}

func canonicalModel(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "models/"))
}
