package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/lastbite/internal/backend"
	"github.com/appetiteclub/lastbite/internal/cart"
	"github.com/appetiteclub/lastbite/internal/menu"
)

// NewClient builds a backend client from backend.url and backend.timeout.
func NewClient(config *apt.Config, logger apt.Logger) (*backend.HTTPClient, error) {
	timeout, err := time.ParseDuration(config.GetStringOrDef("backend.timeout", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend.timeout: %w", err)
	}
	return backend.NewHTTPClient(config.GetStringOrDef("backend.url", backend.DefaultBaseURL), timeout, logger), nil
}

// PrintMenu loads the menu once and writes the displayed sections to out.
func PrintMenu(ctx context.Context, client backend.MenuClient, logger apt.Logger, out io.Writer) error {
	loader := menu.NewLoader(client, logger)
	if err := loader.Load(ctx); err != nil {
		return fmt.Errorf("load menu: %w", err)
	}

	view := loader.Snapshot()
	if view.Empty {
		fmt.Fprintln(out, view.Message)
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, section := range view.Sections {
		fmt.Fprintf(tw, "\n%s\n", section.Title)
		fmt.Fprintln(tw, "ID\tDish\tDescription\tPrice")
		for _, item := range section.Items {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", item.ID, item.Name, item.Description, cart.FormatAmount(item.Price))
		}
	}
	return tw.Flush()
}
