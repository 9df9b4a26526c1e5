// Package store defines interfaces for persisting rate tables and
// projection runs. These interfaces keep the projection services
// independent of the database technology behind them.
package store
