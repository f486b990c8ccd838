// Package push delivers mobile and web push notifications.
//
// Gateway is the multicast abstraction consumed by the notification engine.
// FCMClient implements it over the Firebase Cloud Messaging HTTP v1 API with a
// service-account OAuth2 client, fanning a multicast out into per-token requests.
// BreakerGateway adds a circuit breaker in front of any Gateway.
//
// Per-token failures are reported in BatchResponse.Results. Unregistered or
// malformed tokens are marked with ErrInvalidToken and listed by
// BatchResponse.InvalidTokens so callers can deactivate them. SendMulticast
// returns ErrGatewayUnavailable only when no token accepted the message because
// of transport failures.
//
//	gw, err := push.NewFCMClientFromConfig(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	resp, err := gw.SendMulticast(ctx, push.Message{
//	    Tokens: tokens,
//	    Title:  "New message",
//	    Body:   "Hi",
//	})
package push
