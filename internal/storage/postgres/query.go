package postgres

import (
	"fmt"
	"strings"

	"github.com/vladislavdragonenkov/littlelemon/internal/domain"
)

// whereBuilder собирает WHERE с позиционными параметрами $1..$N.
type whereBuilder struct {
	clauses []string
	args    []any
}

// add добавляет условие; каждое %s в cond заменяется на следующий плейсхолдер.
func (w *whereBuilder) add(cond string, args ...any) {
	placeholders := make([]any, len(args))
	for i, arg := range args {
		w.args = append(w.args, arg)
		placeholders[i] = fmt.Sprintf("$%d", len(w.args))
	}
	w.clauses = append(w.clauses, fmt.Sprintf(cond, placeholders...))
}

func (w *whereBuilder) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// next возвращает плейсхолдер для дополнительного аргумента (LIMIT/OFFSET).
func (w *whereBuilder) next(arg any) string {
	w.args = append(w.args, arg)
	return fmt.Sprintf("$%d", len(w.args))
}

// orderBy строит ORDER BY по разрешённым колонкам; tiebreak добавляется в конец.
func orderBy(fields []domain.SortField, columns map[string]string, def []domain.SortField, tiebreak string) string {
	if len(fields) == 0 {
		fields = def
	}
	parts := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		col, ok := columns[f.Field]
		if !ok {
			continue
		}
		dir := "ASC"
		if f.Desc {
			dir = "DESC"
		}
		parts = append(parts, col+" "+dir)
	}
	parts = append(parts, tiebreak)
	return " ORDER BY " + strings.Join(parts, ", ")
}

// containsPattern экранирует спецсимволы LIKE и оборачивает строку в %...%.
func containsPattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
