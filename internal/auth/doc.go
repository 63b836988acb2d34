// Package auth signs the context carried by interactive card buttons.
//
// Every button and select on a card posts back to the bot's public
// callback URL with a context map chosen by the bot. When a callback
// secret is configured, that map carries an HS256 JWT binding the card to
// its thread, channel and stage, so forged or replayed callbacks for
// another thread are rejected before they reach a session.
package auth
