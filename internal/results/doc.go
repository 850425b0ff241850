// Package results loads per-trial registration results written by the
// evaluation pipeline.
//
// Every registration attempt is one row with an initial Displacement and a
// post-registration Error, both in pixels. Rows for one selector (method,
// mode, preprocessing) are spread over one CSV per threshold level:
//
//	<root>/[fold<k>/]patch_tlevel<n>/results/<method>_<mode>_<preprocess>.csv
//
// Load pools every matching file into a single ResultSet. Trials carry no
// identity, so duplicates across files are simply pooled.
package results
