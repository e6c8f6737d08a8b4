package domain

import "errors"

// ErrorKind classifies arena failures so transports can map them.
type ErrorKind string

const (
	KindAuthorization  ErrorKind = "authorization"
	KindState          ErrorKind = "state"
	KindExternalData   ErrorKind = "external_data"
	KindDataCorruption ErrorKind = "data_corruption"
)

// Error is an arena failure of a given kind. A kind-only Error (empty Msg)
// matches every Error of the same kind under errors.Is.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Kind) + " error"
	}
	return e.Msg
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Kind == e.Kind
}

// Kind matchers
var (
	ErrAuthorization  = &Error{Kind: KindAuthorization}
	ErrState          = &Error{Kind: KindState}
	ErrExternalData   = &Error{Kind: KindExternalData}
	ErrDataCorruption = &Error{Kind: KindDataCorruption}
)

// KindOf returns the kind of an arena error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Authorization errors
var (
	ErrNotAdmin = &Error{Kind: KindAuthorization,
		Msg: "this is an admin command and can only be run by the admin"}
	ErrUnknownCardContract = &Error{Kind: KindAuthorization,
		Msg: "this arena does not accept heroes from that card contract"}
)

// Bullpen errors
var (
	ErrOneHeroOnly      = &Error{Kind: KindState, Msg: "you may only send one hero to the arena"}
	ErrBattlesHalted    = &Error{Kind: KindState, Msg: "battles in this arena have been halted"}
	ErrAlreadyInBullpen = &Error{Kind: KindState, Msg: "you already have a hero in the bullpen"}
	ErrMissingEntropy   = &Error{Kind: KindState, Msg: "an entropy string is required to enter the arena"}
	ErrNotInBullpen     = &Error{Kind: KindState, Msg: "you do not have a hero in the bullpen"}
)

// Migration errors
var (
	ErrExportInProgress = &Error{Kind: KindState,
		Msg: "battles may not resume while player stats are being exported"}
	ErrBattlesNotHalted = &Error{Kind: KindState,
		Msg: "battles must be halted before player stats can be exported"}
	ErrNoPlayers            = &Error{Kind: KindState, Msg: "there are no players to export"}
	ErrExportTargetUnset    = &Error{Kind: KindState, Msg: "the export target has not been set"}
	ErrImportSourceUnset    = &Error{Kind: KindState, Msg: "the import source has not been set"}
	ErrImportSourceMismatch = &Error{Kind: KindState,
		Msg: "this arena only imports from its authorized exporter"}
	ErrMissingBatchID = &Error{Kind: KindState, Msg: "an import batch id is required"}
)

// External data errors
var (
	ErrMissingHeroStats = &Error{Kind: KindExternalData, Msg: "hero stats missing from private metadata"}
	ErrInvalidHeroStats = &Error{Kind: KindExternalData, Msg: "error parsing hero stats"}
	ErrRegistryQuery    = &Error{Kind: KindExternalData, Msg: "could not query hero stats from the card contract"}
)

// Data corruption errors
var (
	ErrHistoryCorrupted = &Error{Kind: KindDataCorruption, Msg: "battle history corrupted"}
)

// ErrArenaNotFound is returned when the arena state row has not been created.
var ErrArenaNotFound = errors.New("arena state not initialized")
