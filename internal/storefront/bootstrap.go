package storefront

import (
	"context"
	"sync"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/lastbite/internal/cart"
	"github.com/appetiteclub/lastbite/internal/menu"
)

// Bootstrap loads the menu and initialises the cart independently of each
// other when the storefront starts.
type Bootstrap struct {
	menu   *menu.Loader
	cart   *cart.Controller
	logger apt.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewBootstrap(loader *menu.Loader, controller *cart.Controller, logger apt.Logger) *Bootstrap {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Bootstrap{
		menu:   loader,
		cart:   controller,
		logger: logger,
	}
}

// Start kicks both loads off in the background and returns immediately.
func (b *Bootstrap) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	b.cancel = cancel

	b.wg.Add(2)
	go func() {
		defer b.wg.Done()
		if err := b.menu.Load(ctx); err != nil {
			b.logger.Info("storefront menu unavailable", "error", err)
		}
	}()
	go func() {
		defer b.wg.Done()
		b.cart.Init(ctx)
	}()
	return nil
}

// Stop discards any in-flight responses and waits for the loads to return.
func (b *Bootstrap) Stop(ctx context.Context) error {
	b.menu.Close()
	b.cart.Close()
	if b.cancel != nil {
		b.cancel()
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until both loads have finished. Useful for one-shot tools.
func (b *Bootstrap) Wait() {
	b.wg.Wait()
}
