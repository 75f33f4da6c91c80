// Package schema turns a form's field definitions into a validator for
// respondent answers.
//
// Compile is pure: the same fields always produce a validator that gives the
// same verdict for the same input, so it is cheap to run on every submission.
// A validator never fails on bad respondent input; it reports every problem
// as a model.FieldError and applies nothing unless the whole input is valid.
// Compile itself returns ErrMalformedField when a definition could never be
// answered, which means the caller let an unfinished form through.
package schema
