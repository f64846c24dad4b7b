/*
Package supportflow is a customer support workflow for conversational agents.

Each user message runs one pass over a fixed, acyclic graph:

	prepare -> classify -> {resolve | ops | escalate}
	resolve -> {escalate | end}

The classifier labels the message with a closed-set intent. Knowledge
questions are answered from the account's knowledge base when the top search
score clears a confidence threshold; account operations (profile, subscription,
reservations) are chosen by the model from a fixed registry and executed
against the customer store; everything else is escalated to the ticketing
system and an external intake endpoint.

Failures of the model, the stores or the notification endpoint never abort a
run. They are recorded in the result fields of the returned state and the
conversation always receives a readable reply.

# Usage

	eng, err := supportflow.New(supportflow.Dependencies{
		LLM:       llm,
		Search:    tickets,
		Customers: customers,
		Tickets:   tickets,
		Notifier:  notifier,
	}, supportflow.WithThreadStore(file.New(".supportflow/threads")))
	if err != nil {
		log.Fatal(err)
	}

	state, err := eng.Handle(ctx, supportflow.Request{
		ThreadID: "thread-1",
		Message:  "I forgot my password",
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(state.Intent, state.Messages[len(state.Messages)-1].Content)

Conversations are kept per thread ID; concurrent turns of the same thread are
serialized.
*/
package supportflow
