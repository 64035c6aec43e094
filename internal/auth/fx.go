package auth

import "go.uber.org/fx"

var Module = fx.Module("auth.verifier",
	fx.Provide(NewJWTVerifier),
	fx.Provide(func(v *JWTVerifier) Verifier { return v }),
)
