package games

// Two players, double-six set (28 tiles, [0|0] through [6|6])
// Each player is dealt 7 tiles; the remaining 14 form the draw pool
// The player holding the highest double plays first; with no doubles dealt, the first seat starts
// On your turn, place a tile whose face matches an open end of the board chain, flipping it if needed
// If you cannot play, draw from the pool (you keep the turn and may try again)
// Once the pool is empty, a player with no legal move must pass
// First player to empty their hand wins immediately

// Blocked games:
// - Pool empty, both players pass back to back, neither hand has a legal move
// - The player with the lower total pip count wins; ties go to the first seat

// Implementation details:
// - One websocket hub per room; the hub applies one command at a time
// - Players identified by cookie, so a dropped connection can reclaim its seat
// - State is rebroadcast per player after every move; hands stay private

// How to play
// - Open /domino to get a fresh room, share the code (or the QR) with your opponent
// - Enter a name to take a seat; the game deals as soon as both seats are filled
// - Click a tile in your hand, then an end of the board, to play it
