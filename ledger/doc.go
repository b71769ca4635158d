// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package ledger records student votes on extra-bus requests.

# Casting

CastVote inserts one row per (topic, student). It refuses votes when:

  - the topic's end date has passed (ErrVotingClosed)
  - the topic is no longer active (ErrTopicNotActive)
  - the option belongs to another topic (ErrInvalidOption)
  - the student voted on another topic within the cooldown (ErrVoteCooldown)
  - the student already voted on this topic (ErrDuplicateVote, from the
    unique index)

# Expiry

Votes stop counting after Windows.TTL. SweepExpired deletes them and returns
the affected topic IDs so callers can recount. Running it twice with no new
votes deletes nothing the second time.
*/
package ledger
