// Package core is the validation and save engine of a declarative tabular
// importer.
//
// An importer is declared with a [Config]: the fields it expects, the
// subset that is required and one optional [Validator] per field. [New]
// opens the source through a reader chosen by file extension and reads its
// header line; unreadable, malformed or unsupported sources fail here.
//
//	im, err := core.New(reader.FromPath("people.csv"), core.Config{
//	    Name:           "people",
//	    Fields:         []string{"name", "cpf"},
//	    RequiredFields: []string{"cpf"},
//	    Validators:     map[string]core.Validator{"cpf": rules.CPF()},
//	    Saver:          store,
//	})
//	if err != nil {
//	    return err
//	}
//	defer im.Close()
//
//	ok, err := im.IsValid(ctx)
//	if !ok {
//	    report(im.Errors())
//	}
//	saved, err := im.SaveAll(ctx)
//
// # Cleaning
//
// Rows are numbered from 1 in the order the reader produces them. Cleaning
// a row runs the required checks first, in declaration order, then each
// remaining field's validator. Every rejection message is recorded in the
// [ErrorMap] and logged once at error level as "Line {i}, field {f}: {msg}".
// A row's outcome is cached by row number and never recomputed.
//
// # Saving
//
// [Importer.SaveAll] and [Importer.SaveIter] pass every valid row to the
// [Saver]. After a completed validation pass they replay the cache; before
// one they read the source and clean as they go. A failing Save is logged
// at critical level and stops the pass with an error wrapping
// [ErrSaveFailed].
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
package core
