/*
Package ports defines the driven ports (interfaces) of the support workflow.

These interfaces decouple the workflow from external implementations: the
language model, the knowledge base, the customer and ticketing databases, the
escalation intake endpoint and thread persistence.

# Key Interfaces

  - Completer: sends a (system, user) pair to a language model.
  - KnowledgeSearcher: ranks knowledge snippets for a query.
  - CustomerStore: profile, subscription and reservation operations.
  - TicketStore: ticket history and escalation status.
  - Notifier: posts an escalation to the external intake system.
  - ThreadStore: persists conversations across turns.
  - DistributedLocker: cross-instance mutual exclusion.
*/
package ports
