// Package config collects the gateway's process configuration.
//
// Configuration comes from three places, later ones winning:
//
//  1. Defaults (Default)
//  2. An optional YAML file (Load), decoded strictly and validated against the
//     CUE definition #Config in schema.cue
//  3. The process environment (ApplyEnv)
//
// The recording dispatch target is not configuration: it comes from the
// -recordReplayDispatch command line argument (ParseDispatch).
//
// # Environment
//
//	RECORD_REPLAY_DRIVER                   driver module path
//	RECORD_REPLAY_AUTH                     auth token (read once, then unset)
//	RECORD_REPLAY_API_KEY                  fallback auth token (unset with the above)
//	RECORD_ALL_CONTENT                     record all content automatically
//	RECORD_REPLAY_PRETEND_NOT_RECORDING    attach, but behave as if not recording
//	RECORD_REPLAY_DONT_PROCESS_RECORDINGS  skip post-recording processing
//	RECORD_REPLAY_PROFILE_DIRECTORY        enable execution profiling into a directory
//	RECORD_REPLAY_RECORD_EXECUTION_ASSERTS execution-progress assert filter
//	RECORD_REPLAY_RECORD_JS_ASSERTS        JS value assert filter
//
// A flag variable counts as set when it is present and non-empty.
package config
