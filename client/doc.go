// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package client is the consumer surface of pollchain.

It composes a wallet session, a ledger gateway, the local poll store and the
vote orchestrator:

	c, err := client.Open(cfg, wallet.AutoApprove{})
	id, err := c.Connect(ctx)

	for poll, err := range c.ListPolls(ctx) {
		if err != nil {
			return err
		}
		fmt.Println(poll.Title, c.Classify(poll))
	}

	res, err := c.CastVote(ctx, pollID, 0)
	winner, err := c.ResolveWinner(ctx, poll)

ListPolls is lazy: pages are fetched as the loop advances, and ranging over
the same sequence again starts from the first page. ResolveWinner refuses
polls that have not ended (ErrPollNotEnded) and always uses fresh tallies.
*/
package client
