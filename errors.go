package main

import "errors"

// ErrNotChannel is returned when a reference resolves to a user or a small
// group chat instead of a broadcast channel.
var ErrNotChannel = errors.New("entity is not a channel")

// ErrInviteInvalid is returned when an invite link is malformed, revoked or expired.
var ErrInviteInvalid = errors.New("invalid or expired invite link")

// ErrChannelPrivate is returned when the channel exists but the logged-in
// account has not joined it.
var ErrChannelPrivate = errors.New("channel is private or not joined")
