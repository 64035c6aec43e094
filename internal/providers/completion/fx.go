package completion

import (
	coachdomain "github.com/smallbiznis/fincoach/internal/coach/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("completion.client",
	fx.Provide(New),
	fx.Provide(func(c *Client) coachdomain.Completer { return c }),
)
