// Package ratefile reads decrement bases from YAML files so actuarial
// tables can be version-controlled and imported into the rate store.
package ratefile
