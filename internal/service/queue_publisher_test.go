package service

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ev-asset-platform/internal/model"
	"github.com/iliyamo/ev-asset-platform/internal/queue"
	"github.com/iliyamo/ev-asset-platform/internal/testutil"
)

// silentBroker accepts TCP connections and never answers the AMQP
// handshake.
func silentBroker(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	var conns []net.Conn
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			conns = append(conns, c)
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		<-done
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return "amqp://guest:guest@" + ln.Addr().String() + "/"
}

func TestAMQPPublisherHonoursContextDeadline(t *testing.T) {
	p := NewAMQPPublisher(silentBroker(t))
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := p.Publish(ctx, queue.AuthEvent{Type: queue.EventLoggedIn})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestLoginNotDelayedBySilentBroker(t *testing.T) {
	async := NewAsyncPublisher(NewAMQPPublisher(silentBroker(t)), 8, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go async.Run(ctx)

	f := newFixtureWithEvents(t, async)
	f.seed(t, "inv-1", "slow@example.com", "right-password", model.RoleInvestor, model.StatusActive)

	start := time.Now()
	_, err := f.svc.Login(context.Background(), "slow@example.com", "right-password", Meta{})
	require.NoError(t, err)
	_, err = f.svc.Login(context.Background(), "slow@example.com", "wrong-password", Meta{})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestAsyncPublisherDropsWhenFull(t *testing.T) {
	async := NewAsyncPublisher(&testutil.Publisher{}, 1, nil)

	assert.NoError(t, async.Publish(context.Background(), queue.AuthEvent{Type: queue.EventSignedUp}))
	assert.ErrorIs(t, async.Publish(context.Background(), queue.AuthEvent{Type: queue.EventLoggedIn}), ErrEventDropped)
}

func TestAsyncPublisherForwardsInOrder(t *testing.T) {
	rec := &testutil.Publisher{}
	async := NewAsyncPublisher(rec, 4, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go async.Run(ctx)

	require.NoError(t, async.Publish(ctx, queue.AuthEvent{Type: queue.EventLoggedIn}))
	require.NoError(t, async.Publish(ctx, queue.AuthEvent{Type: queue.EventLoggedOut}))

	assert.Eventually(t, func() bool { return len(rec.Types()) == 2 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{queue.EventLoggedIn, queue.EventLoggedOut}, rec.Types())
}
