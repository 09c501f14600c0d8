package games

// Each student registers with a username and their name, then writes one sentence about music
// The sentences are collected, shuffled once, and shown anonymously to the whole class
// Students then guess which classmate wrote each sentence
// The teacher advances the game through four phases: registration, submission, guessing, results
// Scoring: one point per correct author-sentence match; matching your own sentence never counts
// Maximum score is the sentence count minus one, since you always know your own

// How to run a round
// - Teacher starts the server and puts the /qr code on the projector
// - Students register while phase 1 is open
// - Teacher opens phase 2, everyone submits a sentence (resubmitting replaces it)
// - Teacher opens phase 3, the list is shuffled, everyone fills in their guess sheet
// - Teacher opens phase 4, scoreboard and answer key are revealed

// Implementation details:
// - One global game per process, persisted as a single JSON document
// - Phase changes are pushed to connected clients over a websocket; clients may also poll
