/*
Package resilience provides a circuit breaker for the proxy's outbound calls.

# Overview

Each MGM backend module gets its own breaker (via Group) so a module that
keeps failing is skipped quickly instead of holding up every chat request
for the full fetch timeout. A rejected call surfaces as ErrCircuitOpen,
which the proxy folds into an "Error fetching data" fragment like any other
transport failure.

# Usage

	group := resilience.NewGroup(resilience.Settings{
		Timeout: 30 * time.Second,
		ReadyToTrip: func(c resilience.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
	})

	body, err := resilience.Execute(group.Get("Inventory"), func() (string, error) {
		return fetch(ctx, "Inventory")
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                       [failure]
	                                           v
	                                          Open
*/
package resilience
