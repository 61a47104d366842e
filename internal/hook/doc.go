// Package hook provides the multicall engine used to invoke a named hook across
// the implementations plugins registered for it.
//
// The engine supports:
//   - Plain implementations: called in sequence, their results aggregated
//   - Wrapper implementations: bracket the rest of the chain in two phases,
//     a before phase that returns a Teardown and an after phase that receives
//     the inner outcome (result or error)
//   - firstresult hooks: the first non-nil plain result wins and stops the chain
//
// Call order:
//   - Implementation lists are kept in registration order and executed from the
//     end toward the start, so the most recently registered plain implementation
//     runs first and the most recently registered wrapper is the outermost one
//   - Teardowns run innermost to outermost, each seeing exactly what its inner
//     neighbour produced or returned as error
//
// Error handling:
//   - A missing argument is reported as a CallError with code ErrCodeArgument
//   - An implementation error aborts the remaining plain implementations; wrappers
//     that already entered still get their after phase with the error
//   - A panicking implementation is recovered into a PanicError
package hook
