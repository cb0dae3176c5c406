// Package diag defines the soundness violations reported by the borrow
// checker. Checking stops at the first violation, which is returned to the
// caller as an *Error.
package diag

import (
	"errors"
	"fmt"
	"io"

	"github.com/BarrensZeppelin/borrowck/mir"
	"github.com/fatih/color"
)

// Kind identifies the rule a violation breaks.
type Kind int

const (
	// UninitUse is a read of a place that is not fully initialized.
	UninitUse Kind = iota + 1
	// UninitWrite is a write through a dereference of an uninitialized place.
	UninitWrite
	// SharedWrite is a write to a place behind a shared borrow.
	SharedWrite
	// MutBorrowOfShared is a mutable borrow of a place behind a shared borrow.
	MutBorrowOfShared
	// MissingOutlives is a signature that does not declare a lifetime
	// relation the body requires.
	MissingOutlives
	AssignBorrowed
	DeinitBorrowed
	ReturnBorrowedParam
	UseWhileBorrowed
	BorrowConflict
	CallDestBorrowed
	MoveOutOfBorrow
)

var kindNames = map[Kind]string{
	UninitUse:           "uninit-use",
	UninitWrite:         "uninit-write",
	SharedWrite:         "shared-write",
	MutBorrowOfShared:   "mut-borrow-of-shared",
	MissingOutlives:     "missing-outlives",
	AssignBorrowed:      "assign-borrowed",
	DeinitBorrowed:      "deinit-borrowed",
	ReturnBorrowedParam: "return-borrowed-param",
	UseWhileBorrowed:    "use-while-borrowed",
	BorrowConflict:      "borrow-conflict",
	CallDestBorrowed:    "call-dest-borrowed",
	MoveOutOfBorrow:     "move-out-of-borrow",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is a located soundness violation.
type Error struct {
	Loc  mir.Loc
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Loc, e.Msg)
}

func Errorf(loc mir.Loc, kind Kind, format string, args ...any) *Error {
	return &Error{Loc: loc, Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Is reports whether err is a violation of the given kind.
func Is(err error, kind Kind) bool {
	var d *Error
	return errors.As(err, &d) && d.Kind == kind
}

// Fprint renders err in the conventional file:line:col form. Errors that are
// not violations are printed as internal errors.
func Fprint(w io.Writer, err error, colored bool) {
	sev := color.New(color.FgRed, color.Bold)
	if colored {
		sev.EnableColor()
	} else {
		sev.DisableColor()
	}

	var d *Error
	if !errors.As(err, &d) {
		fmt.Fprintf(w, "%s: %v\n", sev.Sprint("internal error"), err)
		return
	}
	fmt.Fprintf(w, "%v: %s: %s [%v]\n", d.Loc, sev.Sprint("error"), d.Msg, d.Kind)
}
