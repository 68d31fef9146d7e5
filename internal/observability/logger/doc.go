// Package logger centraliza el logging estructurado (zap) del servicio.
//
// Uso típico:
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})
//	defer logger.Sync()
//
//	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("social.reconcile"))
//	log.Info("account linked", logger.Provider("google"), logger.UserID(uid))
//
// Los middlewares HTTP inyectan un logger scoped por request via ToContext.
package logger
