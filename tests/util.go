// Package testutil holds fixtures shared by the service & API tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sonalink/sonalink/core/course"
	"github.com/sonalink/sonalink/core/user"
)

// Logger records the messages it receives.
type Logger struct {
	mu       sync.Mutex
	Messages []string
}

func (l *Logger) log(level, msg string) {
	l.mu.Lock()
	l.Messages = append(l.Messages, fmt.Sprintf("%s: %s", level, msg))
	l.mu.Unlock()
}

func (l *Logger) Debug(msg string, _ ...interface{}) { l.log("DEBUG", msg) }
func (l *Logger) Info(msg string, _ ...interface{})  { l.log("INFO", msg) }
func (l *Logger) Warn(msg string, _ ...interface{})  { l.log("WARN", msg) }
func (l *Logger) Error(msg string, _ ...interface{}) { l.log("ERROR", msg) }
func (l *Logger) Fatal(msg string, _ ...interface{}) { l.log("FATAL", msg) }

// Count returns how many recorded messages were logged at level.
func (l *Logger) Count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int
	for _, m := range l.Messages {
		if len(m) > len(level) && m[:len(level)] == level {
			n++
		}
	}
	return n
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd string,
	isVerified bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:       name,
		Email:      email,
		IsVerified: isVerified,
		CreatedAt:  tstamp,
		UpdatedAt:  tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd, 4); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

// CreateCourse creates a course and enrolls every member in it.
func CreateCourse(t *testing.T, repo course.Repository, code, name string, members ...int64) course.Course {
	t.Helper()
	ctx := context.Background()
	c, err := repo.CreateCourse(ctx, course.Course{Code: code, Name: name, CreatedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("createCourse() failed: %v", err)
	}
	for _, id := range members {
		if err = repo.Enroll(ctx, c.ID, id, time.Now().UTC()); err != nil {
			t.Fatalf("enroll() failed: %v", err)
		}
	}
	return c
}
