// Package agents groups the workflow's model-backed steps. Each agent folds
// every failure into its typed result and never returns an error.
package agents
