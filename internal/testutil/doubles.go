package testutil

import (
	"context"
	"sync"

	"github.com/Kellia855/mindbridge/internal/mailer"
	"github.com/Kellia855/mindbridge/internal/meeting"
	"github.com/Kellia855/mindbridge/internal/models"
)

// MailRecorder is a mailer.Sender that keeps every message.
type MailRecorder struct {
	mu   sync.Mutex
	msgs []mailer.Message
	// Err is returned from Send after recording when set.
	Err error
}

func (r *MailRecorder) Send(_ context.Context, msg mailer.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return r.Err
}

// Messages returns a copy of the recorded messages.
func (r *MailRecorder) Messages() []mailer.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]mailer.Message(nil), r.msgs...)
}

// ProvisionerStub is a meeting.Provisioner driven by function fields.
// Nil fields succeed.
type ProvisionerStub struct {
	CreateFn func(ctx context.Context, b *models.Booking) (*meeting.Meeting, error)
	UpdateFn func(ctx context.Context, b *models.Booking) error
	DeleteFn func(ctx context.Context, eventID string) error

	mu      sync.Mutex
	creates int
	updates int
	deleted []string
}

func (p *ProvisionerStub) Create(ctx context.Context, b *models.Booking) (*meeting.Meeting, error) {
	p.mu.Lock()
	p.creates++
	p.mu.Unlock()
	if p.CreateFn == nil {
		return &meeting.Meeting{JoinLink: "https://meet.example/stub", EventID: "evt-stub"}, nil
	}
	return p.CreateFn(ctx, b)
}

func (p *ProvisionerStub) Update(ctx context.Context, b *models.Booking) error {
	p.mu.Lock()
	p.updates++
	p.mu.Unlock()
	if p.UpdateFn == nil {
		return nil
	}
	return p.UpdateFn(ctx, b)
}

func (p *ProvisionerStub) Delete(ctx context.Context, eventID string) error {
	p.mu.Lock()
	p.deleted = append(p.deleted, eventID)
	p.mu.Unlock()
	if p.DeleteFn == nil {
		return nil
	}
	return p.DeleteFn(ctx, eventID)
}

func (p *ProvisionerStub) Creates() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.creates
}

func (p *ProvisionerStub) Updates() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.updates
}

// Deleted lists the event ids passed to Delete.
func (p *ProvisionerStub) Deleted() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.deleted...)
}
