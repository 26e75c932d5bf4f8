package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

// Probe checks that an Ollama server answers at base and has model pulled.
func Probe(ctx context.Context, base *url.URL, model string) error {
	client := api.NewClient(base, &http.Client{Timeout: 5 * time.Second})
	if err := client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("ollama not reachable at %s: %w", base, err)
	}
	list, err := client.List(ctx)
	if err != nil {
		return fmt.Errorf("list ollama models: %w", err)
	}
	for _, m := range list.Models {
		if m.Name == model || m.Model == model || strings.TrimSuffix(m.Name, ":latest") == model {
			return nil
		}
	}
	return fmt.Errorf("model %s is not available on %s; run `ollama pull %s`", model, base, model)
}
