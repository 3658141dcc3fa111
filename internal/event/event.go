// Package event defines the Event Record: one monitoring notification as
// received from the monitoring system and persisted in the queue.
package event

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidRecord matches every record validation failure.
var ErrInvalidRecord = errors.New("invalid event record")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Draft holds the caller-supplied fields of an Event Record.
// Identity and timestamps are assigned by the store.
type Draft struct {
	NotificationType string `validate:"required"`
	Host             string `validate:"required"`
	HostState        string
	Service          string
	ServiceState     string
	Msg              string
	APIKey           string
	UserKey          string
}

// Record is one persisted notification. Values are never mutated after
// construction; the store returns fresh copies on every read.
type Record struct {
	ID               int64
	NotificationType string
	Host             string
	HostState        string
	Service          string
	ServiceState     string
	Msg              string
	APIKey           string
	UserKey          string
	Queued           time.Time
	Sent             time.Time // zero until dispatched
}

// New validates d and returns the record to enqueue.
func New(d Draft) (Record, error) {
	d.NotificationType = strings.TrimSpace(d.NotificationType)
	d.Host = strings.TrimSpace(d.Host)
	if err := validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			return Record{}, fmt.Errorf("%w: missing %s", ErrInvalidRecord, strings.Join(fields, ", "))
		}
		return Record{}, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	return Record{
		NotificationType: d.NotificationType,
		Host:             d.Host,
		HostState:        d.HostState,
		Service:          d.Service,
		ServiceState:     d.ServiceState,
		Msg:              d.Msg,
		APIKey:           d.APIKey,
		UserKey:          d.UserKey,
	}, nil
}

// Validate re-checks the required fields of an already built record.
func (r Record) Validate() error {
	_, err := New(r.Draft())
	return err
}

// Draft returns the caller-supplied part of r.
func (r Record) Draft() Draft {
	return Draft{
		NotificationType: r.NotificationType,
		Host:             r.Host,
		HostState:        r.HostState,
		Service:          r.Service,
		ServiceState:     r.ServiceState,
		Msg:              r.Msg,
		APIKey:           r.APIKey,
		UserKey:          r.UserKey,
	}
}

// IsServiceEvent reports whether r describes a service rather than a host.
// An empty service name always means a host-level event.
func (r Record) IsServiceEvent() bool { return r.Service != "" }

// IsSent reports whether r has been dispatched.
func (r Record) IsSent() bool { return !r.Sent.IsZero() }

// Summary is the one-line human readable form used as a title or body line:
//
//	PROBLEM: disk on web1 is CRITICAL
//	RECOVERY: web1 is UP
func (r Record) Summary() string {
	if r.IsServiceEvent() {
		return fmt.Sprintf("%s: %s on %s is %s", r.NotificationType, r.Service, r.Host, r.ServiceState)
	}
	return fmt.Sprintf("%s: %s is %s", r.NotificationType, r.Host, r.HostState)
}

// Destination is the grouping key of a record.
type Destination struct {
	APIKey  string
	UserKey string
}

// Destination returns the (APIKey, UserKey) pair r is grouped under.
func (r Record) Destination() Destination {
	return Destination{APIKey: r.APIKey, UserKey: r.UserKey}
}
