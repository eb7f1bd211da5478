// Package importer turns folders of a crypto-assets registry checkout into
// generated data files.
//
// Each importer Definition names one or more folders under <registry>/assets/.
// Every asset directory in those folders is loaded through a bounded
// batch.Runner, failures are logged and dropped, the survivors are optionally
// validated against the countervalues tickers, and the result is written to
// <output_dir>/<output>.<json|yaml>.
//
// Importers themselves run concurrently; one importer failing (for example
// because its folder does not exist) never stops the others.
package importer
