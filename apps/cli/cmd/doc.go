// Package cmd implements the hfdsb command-line interface.
package cmd
