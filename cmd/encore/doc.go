// Command encore runs the karaoke processing daemon and talks to it.
//
// `encore serve` starts the daemon. The remaining commands are HTTP clients
// of that daemon: submit and jobs manage separation/transcription jobs,
// record and recordings manage vocal takes, and status reports dependency
// and storage health. config init/show/validate work without a daemon.
package main
