// Package filtering decides which feed records a sync cycle stores.
//
// Two filters are applied to every record, and a record is stored only when
// it passes both:
//
//   - The SKU filter matches the record SKU against glob patterns. The "*"
//     wildcard matches any run of characters, including "/" and "-".
//   - The stock filter matches the record stock status exactly against a list
//     of statuses ("instock", "outofstock", "onbackorder").
//
// Each filter has an include list and an exclude list. Exclusion takes
// precedence; with include patterns present a record must match one of them;
// with both lists empty every record passes.
//
// Example configuration:
//
//	feed:
//	  filter:
//	    sku:
//	      include: ["SHOE-*", "BAG-*"]
//	      exclude: ["*-SAMPLE"]
//	    stock:
//	      exclude: ["outofstock"]
//
// Filtered records are not written, so entries that stop passing the filter
// age out of the catalog through the normal eviction.
package filtering
