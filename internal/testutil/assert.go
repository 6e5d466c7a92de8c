package testutil

import (
	"errors"
	"reflect"
	"strings"

	"github.com/google/go-cmp/cmp"
)

// TestingT is the subset of testing.T the assertions need.
type TestingT interface {
	Errorf(format string, args ...interface{})
	FailNow()
	Helper()
}

// Assertion chains checks against a single subject.
type Assertion struct {
	t       TestingT
	subject interface{}
	name    string
}

// Assert starts an assertion on subject.
func Assert(t TestingT, subject interface{}) *Assertion {
	return &Assertion{t: t, subject: subject}
}

// Named prefixes failure messages with name.
func (a *Assertion) Named(name string) *Assertion {
	a.name = name
	return a
}

func (a *Assertion) fail(msg string, args ...interface{}) {
	a.t.Helper()
	prefix := ""
	if a.name != "" {
		prefix = a.name + ": "
	}
	a.t.Errorf(prefix+msg, args...)
}

// Equals compares with go-cmp and reports the diff on mismatch.
func (a *Assertion) Equals(expected interface{}) *Assertion {
	a.t.Helper()
	if diff := cmp.Diff(expected, a.subject); diff != "" {
		a.fail("mismatch (-want +got):\n%s", diff)
	}
	return a
}

// NotEquals asserts that the subject differs from expected.
func (a *Assertion) NotEquals(expected interface{}) *Assertion {
	a.t.Helper()
	if cmp.Equal(expected, a.subject) {
		a.fail("expected value different from %v", expected)
	}
	return a
}

// IsNil asserts that the subject is nil.
func (a *Assertion) IsNil() *Assertion {
	a.t.Helper()
	if a.subject == nil {
		return a
	}
	val := reflect.ValueOf(a.subject)
	switch val.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		if val.IsNil() {
			return a
		}
	}
	a.fail("expected nil, got %v", a.subject)
	return a
}

// IsTrue asserts that the subject is true.
func (a *Assertion) IsTrue() *Assertion {
	a.t.Helper()
	if b, ok := a.subject.(bool); !ok || !b {
		a.fail("expected true, got %v", a.subject)
	}
	return a
}

// IsFalse asserts that the subject is false.
func (a *Assertion) IsFalse() *Assertion {
	a.t.Helper()
	if b, ok := a.subject.(bool); !ok || b {
		a.fail("expected false, got %v", a.subject)
	}
	return a
}

// Contains asserts that the string subject contains substr.
func (a *Assertion) Contains(substr string) *Assertion {
	a.t.Helper()
	s, ok := a.subject.(string)
	if !ok {
		a.fail("expected string, got %T", a.subject)
		return a
	}
	if !strings.Contains(s, substr) {
		a.fail("expected %q to contain %q", s, substr)
	}
	return a
}

// HasLength asserts the length of a string, slice, array or map.
func (a *Assertion) HasLength(expected int) *Assertion {
	a.t.Helper()
	val := reflect.ValueOf(a.subject)
	switch val.Kind() {
	case reflect.String, reflect.Array, reflect.Slice, reflect.Map, reflect.Chan:
		if val.Len() != expected {
			a.fail("expected length %d, got %d", expected, val.Len())
		}
	default:
		a.fail("cannot get length of %T", a.subject)
	}
	return a
}

// ErrorAssertion checks an error value.
type ErrorAssertion struct {
	*Assertion
	err error
}

// AssertError starts an assertion on err.
func AssertError(t TestingT, err error) *ErrorAssertion {
	return &ErrorAssertion{Assertion: Assert(t, err), err: err}
}

// IsNoError asserts err is nil.
func (e *ErrorAssertion) IsNoError() *ErrorAssertion {
	e.t.Helper()
	if e.err != nil {
		e.fail("expected no error, got %v", e.err)
	}
	return e
}

// Is asserts errors.Is(err, target).
func (e *ErrorAssertion) Is(target error) *ErrorAssertion {
	e.t.Helper()
	if !errors.Is(e.err, target) {
		e.fail("expected error wrapping %v, got %v", target, e.err)
	}
	return e
}

// ContainsMessage asserts the error message contains substr.
func (e *ErrorAssertion) ContainsMessage(substr string) *ErrorAssertion {
	e.t.Helper()
	if e.err == nil {
		e.fail("expected an error containing %q", substr)
		return e
	}
	if !strings.Contains(e.err.Error(), substr) {
		e.fail("expected error to contain %q, got %q", substr, e.err.Error())
	}
	return e
}

// MustNotFail stops the test on a non-nil error.
func MustNotFail(t TestingT, err error) {
	t.Helper()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
		t.FailNow()
	}
}

// MustFail stops the test when err is nil.
func MustFail(t TestingT, err error) {
	t.Helper()
	if err == nil {
		t.Errorf("expected error but got none")
		t.FailNow()
	}
}
