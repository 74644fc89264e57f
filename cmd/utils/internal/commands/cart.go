package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/lastbite/internal/backend"
	"github.com/appetiteclub/lastbite/internal/cart"
)

const noCartMessage = "No cart stored."

// PrintCart writes the persisted cart's lines and the pre-checkout estimate to
// out. It only reads: no cart is created and no identifier is saved.
func PrintCart(ctx context.Context, client backend.CartClient, store cart.IDStore, logger apt.Logger, out io.Writer) error {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}

	cartID, found, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load cart id: %w", err)
	}
	if !found {
		fmt.Fprintln(out, noCartMessage)
		return nil
	}

	c, err := client.FetchCart(ctx, cartID)
	if errors.Is(err, backend.ErrNotFound) {
		logger.Info("stored cart unknown to backend", "cart_id", cartID)
		fmt.Fprintln(out, noCartMessage)
		return nil
	}
	if err != nil {
		return fmt.Errorf("fetch cart %s: %w", cartID, err)
	}

	lines := c.Lines()
	fmt.Fprintf(out, "Cart %s (%d items)\n", cartID, cart.ItemCount(lines))
	if len(lines) == 0 {
		fmt.Fprintln(out, "Your cart is empty.")
		return nil
	}

	totals := cart.ComputeTotals(lines)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Dish\tEach\tQty\tLine")
	for _, line := range lines {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", line.Name, cart.FormatAmount(line.Price), line.Qty, cart.FormatAmount(cart.LineTotal(line)))
	}
	fmt.Fprintf(tw, "\tSubtotal\t\t%s\n", cart.FormatAmount(totals.Subtotal))
	fmt.Fprintf(tw, "\tTax\t\t%s\n", cart.FormatAmount(totals.Tax))
	fmt.Fprintf(tw, "\tTotal\t\t%s\n", cart.FormatAmount(totals.Total))
	return tw.Flush()
}
