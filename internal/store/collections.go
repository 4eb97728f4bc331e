package store

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-editorial/internal/domain"
)

var collections = map[string]domain.Kind{
	domain.KindArticle.Table(): domain.KindArticle,
	domain.KindProject.Table(): domain.KindProject,
}

func collection(table string) (string, error) {
	table = strings.ToLower(strings.TrimSpace(table))
	if _, ok := collections[table]; !ok {
		return "", storeError(CodeInvalidCollection, fmt.Sprintf("unknown collection %q", table), nil)
	}
	return table, nil
}
