// Package demucs drives the demucs source separation CLI.
//
// The client builds the two-stem invocation, probes that the executable is
// runnable, and hands back a streaming runner.Process so callers can read the
// tqdm progress output as it is produced. Demucs writes its stems under
// <output_root>/<model>/<input stem>/.
package demucs
