package store

import (
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"

	"github.com/goliatone/go-editorial/pkg/interfaces"
)

const (
	CodeNotFound          = "not_found"
	CodeInvalidCollection = "invalid_collection"
	CodeInvalidPayload    = "invalid_payload"
	CodeInvalidID         = "invalid_id"
	CodeDatabase          = "database_error"
)

func storeError(code, message string, err error) error {
	return &interfaces.StoreError{Code: code, Message: message, Err: err}
}

func notFound(table, id string) error {
	return storeError(CodeNotFound, fmt.Sprintf("%s %s not found", singular(table), id), nil)
}

func mapRepositoryError(err error, table, id string) error {
	if err == nil {
		return nil
	}
	if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
		return notFound(table, id)
	}
	return storeError(CodeDatabase, fmt.Sprintf("%s repository error: %v", singular(table), err), err)
}

func singular(table string) string {
	switch table {
	case "articles":
		return "article"
	case "projects":
		return "project"
	default:
		return "document"
	}
}
