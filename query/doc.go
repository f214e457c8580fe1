// Package query builds SELECT, COUNT and DELETE statements over the
// properties of an entity table.
//
// A Builder accumulates conditions, joins and ordering and is built into a
// Query, CountQuery or DeleteQuery. Built queries are compiled once and
// handed out per owner: each owner gets its own instance with a private
// parameter buffer, so SetParameter on one owner never affects another.
//
//	q, err := notes.QueryBuilder().
//		Where(noteText.Like("%go%")).
//		OrderAsc(noteDate).
//		Build()
//	if err != nil {
//		return err
//	}
//	ctx = query.WithOwner(ctx, query.NewOwner())
//	mine := q.ForContext(ctx)
//	if err := mine.SetParameter(0, "%dao%"); err != nil {
//		return err
//	}
//	list, err := mine.List(ctx)
package query
