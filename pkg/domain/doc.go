/*
Package domain contains the core data model of the support workflow.

It defines the state threaded through the workflow graph, the typed outcome
records produced by each handler, and the error taxonomy shared by adapters and
agents. This package is kept pure and free of I/O, following Hexagonal
Architecture principles.

# Key Entities

  - State: the per-request snapshot (conversation, input, intent, identifiers, results).
  - Message: a single conversation entry (role + content).
  - Intent: the closed label set produced by classification.
  - ResolveResult, OpsResult, EscalationResult: tagged success/failure outcomes.
  - Error: a typed failure carrying a stable Code.
  - Node / Transition: declarations of the workflow graph used for introspection.
*/
package domain
