/*
Copyright © 2026 Balakirev1837
*/

package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

func newPage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(getFavicon())
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"/\">%s</a></body></html>", body))

	return htmlBody.String()
}

// ErrorKind classifies game failures so the HTTP layer can pick a status
// code without parsing messages.
type ErrorKind int

const (
	KindValidation ErrorKind = iota
	KindPhaseOrder
	KindInvalidPhase
	KindAuth
	KindDuplicate
	KindStorage
)

type gameError struct {
	kind ErrorKind
	msg  string
	err  error
}

func (e *gameError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *gameError) Unwrap() error {
	return e.err
}

func validationError(msg string) error {
	return &gameError{kind: KindValidation, msg: msg}
}

func phaseOrderError(msg string) error {
	return &gameError{kind: KindPhaseOrder, msg: msg}
}

func invalidPhaseError(msg string) error {
	return &gameError{kind: KindInvalidPhase, msg: msg}
}

func authError(msg string) error {
	return &gameError{kind: KindAuth, msg: msg}
}

func duplicateError(msg string) error {
	return &gameError{kind: KindDuplicate, msg: msg}
}

func storageError(msg string, err error) error {
	return &gameError{kind: KindStorage, msg: msg, err: err}
}

// errorKind extracts the kind from an error produced by the game core.
// Unknown errors are treated as storage-level failures.
func errorKind(err error) ErrorKind {
	var ge *gameError
	if errors.As(err, &ge) {
		return ge.kind
	}
	return KindStorage
}

func errorStatus(err error) int {
	switch errorKind(err) {
	case KindValidation, KindPhaseOrder, KindInvalidPhase, KindDuplicate:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
