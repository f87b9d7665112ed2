package engine

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
)

type mockRegistrar struct {
	mock.Mock
}

func (m *mockRegistrar) RegisterPushToken(ctx context.Context, token, platform string) error {
	return m.Called(ctx, token, platform).Error(0)
}

func TestPushRegistrar(t *testing.T) {
	reg := &mockRegistrar{}
	reg.On("RegisterPushToken", mock.Anything, "mqtt:dev-1", "android").Return(errors.New("offline")).Once()
	reg.On("RegisterPushToken", mock.Anything, "mqtt:dev-1", "android").Return(nil).Once()
	reg.On("RegisterPushToken", mock.Anything, "mqtt:dev-2", "android").Return(nil).Once()

	tokens := make(chan string, 5)
	tokens <- "mqtt:dev-1" // 第一次失败
	tokens <- "mqtt:dev-1" // 重新投递后成功
	tokens <- "mqtt:dev-1" // 已登记，跳过
	tokens <- ""
	tokens <- "mqtt:dev-2"
	close(tokens)

	r := &PushRegistrar{Registrar: reg, Platform: "android"}
	r.Run(context.Background(), tokens)

	reg.AssertExpectations(t)
	reg.AssertNumberOfCalls(t, "RegisterPushToken", 3)
}

func TestPushRegistrar_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan struct{})
	go func() {
		(&PushRegistrar{Registrar: &mockRegistrar{}}).Run(ctx, make(chan string))
		close(done)
	}()
	<-done
}
