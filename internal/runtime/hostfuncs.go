package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/risor-io/risor/object"

	"github.com/jward/ecoscope"
)

// Query results reach scripts as plain maps and lists, keyed the same way as
// the CLI's JSON output, so scripts never hold Go pointers.

// stringQuery wraps a one-argument query.
//
// name(key) → map
func stringQuery(name string, fn func(string) any) *object.Builtin {
	return object.NewBuiltin(name, func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError(name, 1, len(args))
		}
		key, err := toString(args[0])
		if err != nil {
			return object.Errorf("%s: %v", name, err)
		}
		return toObject(name, fn(key))
	})
}

// listing wraps a query without arguments.
func listing(name string, fn func() any) *object.Builtin {
	return object.NewBuiltin(name, func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError(name, 0, len(args))
		}
		return toObject(name, fn())
	})
}

// makePathFn creates the "path" host function.
//
// path(from, to) → map
func makePathFn(q *ecoscope.QueryBuilder) *object.Builtin {
	return object.NewBuiltin("path", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("path", 2, len(args))
		}
		from, err := toString(args[0])
		if err != nil {
			return object.Errorf("path: from: %v", err)
		}
		to, err := toString(args[1])
		if err != nil {
			return object.Errorf("path: to: %v", err)
		}
		return toObject("path", q.Path(from, to))
	})
}

// makeDBQueryFn creates "db_query", read-only SQL over the snapshot.
//
// db_query(sql, args...) → []map
func makeDBQueryFn(s *ecoscope.Store) *object.Builtin {
	return object.NewBuiltin("db_query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 {
			return object.Errorf("db_query: expected at least 1 argument (sql), got %d", len(args))
		}
		sqlStr, err := toString(args[0])
		if err != nil {
			return object.Errorf("db_query: %v", err)
		}

		var queryArgs []any
		for _, arg := range args[1:] {
			switch v := arg.(type) {
			case *object.Int:
				queryArgs = append(queryArgs, v.Value())
			case *object.Float:
				queryArgs = append(queryArgs, v.Value())
			case *object.String:
				queryArgs = append(queryArgs, v.Value())
			case *object.Bool:
				queryArgs = append(queryArgs, v.Value())
			case *object.NilType:
				queryArgs = append(queryArgs, nil)
			default:
				queryArgs = append(queryArgs, fmt.Sprintf("%v", arg))
			}
		}

		rows, err := s.Query(ctx, sqlStr, queryArgs...)
		if err != nil {
			return object.Errorf("db_query: %v", err)
		}
		results := make([]object.Object, 0, len(rows))
		for _, row := range rows {
			m := make(map[string]object.Object, len(row))
			for col, v := range row {
				m[col] = fromGo(v)
			}
			results = append(results, object.NewMap(m))
		}
		return object.NewList(results)
	})
}

// toObject converts a query result to Risor values through its JSON form.
func toObject(name string, v any) object.Object {
	data, err := json.Marshal(v)
	if err != nil {
		return object.Errorf("%s: encode result: %v", name, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return object.Errorf("%s: decode result: %v", name, err)
	}
	return fromGo(generic)
}

// fromGo converts decoded JSON and database values to Risor objects.
func fromGo(v any) object.Object {
	switch val := v.(type) {
	case nil:
		return object.Nil
	case bool:
		return object.NewBool(val)
	case string:
		return object.NewString(val)
	case []byte:
		return object.NewString(string(val))
	case int:
		return object.NewInt(int64(val))
	case int64:
		return object.NewInt(val)
	case float64:
		return object.NewFloat(val)
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return object.NewInt(i)
		}
		f, _ := val.Float64()
		return object.NewFloat(f)
	case []any:
		items := make([]object.Object, len(val))
		for i, item := range val {
			items[i] = fromGo(item)
		}
		return object.NewList(items)
	case map[string]any:
		m := make(map[string]object.Object, len(val))
		for k, item := range val {
			m[k] = fromGo(item)
		}
		return object.NewMap(m)
	default:
		return object.NewString(fmt.Sprintf("%v", val))
	}
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}

// logObject provides log.Debug/Info/Warn/Error methods for scripts.
type logObject struct {
	logger *slog.Logger
}

func (l *logObject) Debug(msg string) {
	l.logger.Debug(msg, "source", "script")
}

func (l *logObject) Info(msg string) {
	l.logger.Info(msg, "source", "script")
}

func (l *logObject) Warn(msg string) {
	l.logger.Warn(msg, "source", "script")
}

func (l *logObject) Error(msg string) {
	l.logger.Error(msg, "source", "script")
}
