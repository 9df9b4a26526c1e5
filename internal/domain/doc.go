// Package domain contains the core entities of the projection system: policy
// terms, transition rate tables, projection rows and stored runs, together
// with the error taxonomy shared by every layer. It is independent of any
// storage or delivery mechanism.
package domain
