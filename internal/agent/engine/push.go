package engine

import (
	"context"

	Logger "rescue-alert-service/pkg/logger"
)

// TokenRegistrar uploads a device push token.
type TokenRegistrar interface {
	RegisterPushToken(ctx context.Context, token, platform string) error
}

// PushRegistrar receives push tokens from the subsystem that obtains them and uploads each one.
type PushRegistrar struct {
	Registrar TokenRegistrar
	Platform  string
}

// Run consumes tokens until the channel closes or ctx is done. A token already registered is
// skipped; a failed one is retried when it is delivered again.
func (p *PushRegistrar) Run(ctx context.Context, tokens <-chan string) {
	var last string
	for {
		select {
		case <-ctx.Done():
			return
		case token, ok := <-tokens:
			if !ok {
				return
			}
			if token == "" || token == last {
				continue
			}
			if err := p.Registrar.RegisterPushToken(ctx, token, p.Platform); err != nil {
				Logger.Warning("[PUSH] 推送令牌上传失败: %v", err)
				continue
			}
			last = token
			Logger.Info("[PUSH] 推送令牌已登记")
		}
	}
}
