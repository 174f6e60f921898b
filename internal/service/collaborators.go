package service

import (
	"context"
	"crypto/subtle"
	"math/rand/v2"
	"time"
)

// Authenticator checks login credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) error
}

// StaticAuthenticator accepts a fixed username → password table. It is a
// stand-in for a real identity provider.
type StaticAuthenticator struct {
	users map[string]string
	delay time.Duration
}

func NewStaticAuthenticator(users map[string]string, delay time.Duration) *StaticAuthenticator {
	copied := make(map[string]string, len(users))
	for u, p := range users {
		copied[u] = p
	}
	return &StaticAuthenticator{users: copied, delay: delay}
}

func (a *StaticAuthenticator) Authenticate(ctx context.Context, username, password string) error {
	if err := sleep(ctx, a.delay); err != nil {
		return err
	}
	want, ok := a.users[username]
	if !ok || subtle.ConstantTimeCompare([]byte(want), []byte(password)) != 1 {
		return ErrInvalidCredentials
	}
	return nil
}

// Submitter forwards a completed screen to the external service.
type Submitter interface {
	Submit(ctx context.Context, op string, payload any) error
}

// SimulatedSubmitter waits Delay and then fails with ErrConnection with
// probability FailureRate.
type SimulatedSubmitter struct {
	Delay       time.Duration
	FailureRate float64
	rand        func() float64
}

func NewSimulatedSubmitter(delay time.Duration, failureRate float64) *SimulatedSubmitter {
	return &SimulatedSubmitter{Delay: delay, FailureRate: failureRate, rand: rand.Float64}
}

func (s *SimulatedSubmitter) Submit(ctx context.Context, _ string, _ any) error {
	if err := sleep(ctx, s.Delay); err != nil {
		return err
	}
	if s.FailureRate > 0 && s.rand() < s.FailureRate {
		return ErrConnection
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
