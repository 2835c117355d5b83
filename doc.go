// Package goforma formats and validates plain in-memory data (maps, slices,
// scalars) against declarative models.
//
// A Model is an ordered set of Fields. Each Field may declare a type, a
// default, rules, a generator, a transform, a nested model, and scope gates
// for visibility (Show) and write permission (Write).
//
//   - Format walks the model and the data in lock-step and returns a new value
//     with defaults, generated values and transforms applied. The input is
//     never written to.
//   - Validate returns a Result whose error tree is keyed by field name and
//     array index. Validation failures are values; returned errors are
//     configuration faults (see ErrUnresolvedModel, ErrMaxDepth).
//   - CheckValue validates a single value and returns its ordered error codes.
//
// Presence is explicit: mo.None means a value was not provided, mo.Some(nil)
// means it was provided as null.
//
// Typical usage:
//
//	user := goforma.NewModel(
//		goforma.Field{Key: "name", Type: "string", Required: true},
//		goforma.Field{Key: "role", Default: mo.Some[any]("member")},
//	)
//	out, err := goforma.Format(user, map[string]any{"name": "Ada"})
//	res, err := goforma.Validate(user, out)
//	if !res.Valid {
//		log.Println(res.Err())
//	}
package goforma
