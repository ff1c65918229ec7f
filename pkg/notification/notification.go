// Package notification is the portal's toast feed.
//
// Every user-visible outcome (a failed fetch, an accepted order, a forced
// logout) becomes a Notice. The web UI streams notices over SSE and the CLI
// prints them; both read from the same Center.
//
//	notices.Success("Order %s accepted", id)
//	notices.Error("Could not refresh orders.")
package notification

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shashiranjanraj/aquaportal/pkg/logger"
)

// Level is the toast style.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

// Notice is one toast.
type Notice struct {
	ID      string    `json:"id"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

const keepRecent = 20

type subscriber struct {
	ch chan Notice
}

// Center fans notices out to subscribers and keeps the most recent ones for
// pages rendered after the fact.
type Center struct {
	log *slog.Logger
	now func() time.Time

	mu     sync.Mutex
	recent []Notice
	subs   map[*subscriber]struct{}
}

func NewCenter() *Center {
	return &Center{
		log:  logger.Component("notification"),
		now:  time.Now,
		subs: make(map[*subscriber]struct{}),
	}
}

func (c *Center) Success(format string, args ...any) Notice {
	return c.Push(LevelSuccess, fmt.Sprintf(format, args...))
}

func (c *Center) Info(format string, args ...any) Notice {
	return c.Push(LevelInfo, fmt.Sprintf(format, args...))
}

func (c *Center) Error(format string, args ...any) Notice {
	return c.Push(LevelError, fmt.Sprintf(format, args...))
}

// Push records a notice and delivers it to every subscriber. A subscriber
// whose buffer is full misses the notice rather than blocking the sender.
func (c *Center) Push(level Level, msg string) Notice {
	n := Notice{ID: uuid.NewString(), Level: level, Message: msg, At: c.now()}

	switch level {
	case LevelError:
		c.log.Warn("notice", "level", level, "message", msg)
	default:
		c.log.Info("notice", "level", level, "message", msg)
	}

	c.mu.Lock()
	c.recent = append(c.recent, n)
	if len(c.recent) > keepRecent {
		c.recent = c.recent[len(c.recent)-keepRecent:]
	}
	for s := range c.subs {
		select {
		case s.ch <- n:
		default:
		}
	}
	c.mu.Unlock()

	return n
}

// Subscribe returns a channel of future notices and a func that closes it.
func (c *Center) Subscribe(buffer int) (<-chan Notice, func()) {
	if buffer < 1 {
		buffer = 1
	}
	s := &subscriber{ch: make(chan Notice, buffer)}

	c.mu.Lock()
	c.subs[s] = struct{}{}
	c.mu.Unlock()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, s)
			c.mu.Unlock()
			close(s.ch)
		})
	}
}

// Recent returns up to the last 20 undismissed notices, oldest first.
func (c *Center) Recent() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notice, len(c.recent))
	copy(out, c.recent)
	return out
}

// Dismiss drops a notice from Recent. Unknown ids are ignored.
func (c *Center) Dismiss(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, n := range c.recent {
		if n.ID == id {
			c.recent = append(c.recent[:i], c.recent[i+1:]...)
			return
		}
	}
}
