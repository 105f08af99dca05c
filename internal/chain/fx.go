package chain

import (
	"context"

	"github.com/groundstone/terravest/internal/chain/domain"
	"github.com/groundstone/terravest/internal/chain/evm"
	"go.uber.org/fx"
)

var Module = fx.Module("chain.client",
	fx.Provide(evm.New),
	fx.Provide(func(c *evm.Client) domain.Query { return c }),
	fx.Provide(func(c *evm.Client) domain.Settlement { return c }),
	fx.Invoke(registerClose),
)

func registerClose(lc fx.Lifecycle, c *evm.Client) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			c.Close()
			return nil
		},
	})
}
