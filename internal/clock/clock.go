// Package clock абстрагирует текущее время, чтобы его можно было подменить в тестах.
package clock

import "time"

// Clock возвращает текущее время.
type Clock interface {
	Now() time.Time
}

// System реализует часы на основе time.Now в локальной зоне сервера.
type System struct{}

// Now возвращает текущее время.
func (System) Now() time.Time {
	return time.Now()
}

// Fake реализует управляемые часы для тестов.
type Fake struct {
	now time.Time
}

// NewFake создаёт часы, показывающие заданное время.
func NewFake(t time.Time) *Fake {
	return &Fake{now: t}
}

// Now возвращает установленное время.
func (c *Fake) Now() time.Time {
	return c.now
}

// Advance сдвигает часы вперёд.
func (c *Fake) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// DateOf возвращает календарную дату момента t в его собственной зоне, представленную
// полночью UTC. В таком виде даты хранятся в моделях и сравниваются между собой.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today возвращает текущую календарную дату по часам c.
func Today(c Clock) time.Time {
	return DateOf(c.Now())
}
