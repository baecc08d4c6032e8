package llm

import (
	"fmt"
	"sort"
	"strings"
)

// FormatMetadata renders submitter metadata as indented key/value text for
// prompts. Lists and nested maps are indented one level per depth; keys are
// sorted so prompts are stable for a given task.
func FormatMetadata(metadata map[string]any) string {
	if len(metadata) == 0 {
		return ""
	}
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var lines []string
	for _, k := range keys {
		switch v := metadata[k].(type) {
		case []any:
			lines = append(lines, k+":")
			for _, item := range v {
				lines = append(lines, fmt.Sprintf("  - %v", item))
			}
		case []string:
			lines = append(lines, k+":")
			for _, item := range v {
				lines = append(lines, "  - "+item)
			}
		case map[string]any:
			lines = append(lines, k+":")
			for _, sub := range strings.Split(FormatMetadata(v), "\n") {
				if sub != "" {
					lines = append(lines, "  "+sub)
				}
			}
		default:
			lines = append(lines, fmt.Sprintf("%v: %v", k, v))
		}
	}
	return strings.Join(lines, "\n")
}

// AnalysisPrompt is the system message for page-range discovery. Metadata such
// as candidate customer names biases the boundary decision but is never
// treated as ground truth.
func AnalysisPrompt(totalPages, expectedCount int, metadata map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, `
You are an expert in identifying invoices and determining page ranges in PDF documents.
Based on the following information, please determine the page ranges for each invoice:

1. Total number of pages: %d
2. Number of invoices included: %d
3. Criteria for distinguishing invoices:
   - Each invoice typically starts on a new page.
   - New invoice starts are indicated by invoice numbers, dates, and customer information.
   - Consecutive pages of the same invoice usually have page numbers or continuity indicators.
`, totalPages, expectedCount)

	if md := FormatMetadata(metadata); md != "" {
		fmt.Fprintf(&b, `
4. Additional Information:
%s

Use the above additional information to perform more accurate page splitting.
If customer_names are provided, match them with the customer information of each invoice.
`, md)
	}

	fmt.Fprintf(&b, `
Analyze the provided text and split it into exactly %d invoices.
Note: Page numbers start from 1 and should be between 1 and %d.
`, expectedCount, totalPages)
	return b.String()
}

const invoiceRules = `
You are an expert in extracting invoice data. Please follow these detailed steps to ensure accurate extraction:

1. Data Integrity Principles:
   - Extract only explicitly displayed data
   - Do not omit or add data arbitrarily
   - No assumptions or guesses
   - Prefer displayed values over calculated ones
   - Extract all amounts as numbers without commas/currency symbols

2. Item List Processing:
   - Criteria for extracting item data:
     * Extract data only if item_name is present (empty string "" is also valid)
     * Process as an item only if both quantity and unit_price are present
     * Consider it not an item if either quantity or unit_price is missing
   - Exclusion criteria:
     * Rows with only notes/descriptions (no quantity/unit_price/amount)
     * Category/section text rows
     * Subtotal/total/intermediate total rows
     * Additional explanations or annotation rows
   - Item Name Processing:
     * Treat empty string "" as valid data for item_name
     * Include additional explanations for items in item_name
     * Exclude independent note/description rows
   - Item Data Validation:
     * Exclude if item_name is present but quantity/unit_price is missing
     * Exclude if quantity and unit_price are present but it's clearly a subtotal/total row
     * Exclude if in doubt (adhere to data integrity principles)

3. Amount Extraction Rules:
   - Priority for amount verification:
     * 1st priority: Explicit amounts at the top of the first page and bottom of the last page
     * 2nd priority: Calculated amounts from the item list
     * Always prioritize explicit amounts if there is a discrepancy
   - Amount Location:
     * First page: Search in the top or header area
     * Last page: Search in the bottom or footer area
   - Processing by Amount Type:
     * Subtotal:
       - Search keywords: "Subtotal", "Total before tax", etc.
       - Extract amounts distinct from tax/total amounts
     * Tax Amount:
       - Search keywords: "Tax", "VAT", etc.
       - Typically 10% of the subtotal, but always use the explicitly stated value
     * Total Amount:
       - Search keywords: "Total", "Grand Total", etc.
       - Verify if it matches the sum of subtotal and tax amounts
       - Prioritize the explicitly stated total amount if there is a discrepancy
   - Amount Verification:
     * Check for consistency if amounts are displayed multiple times
     * Prioritize the first page amount if inconsistent
     * Verify the relationship: Subtotal + Tax = Total
     * Use explicitly displayed amounts if there is a discrepancy
   - Negative Amount Handling:
     * Negative amounts are possible for returns/discounts/refunds
     * If the subtotal is negative, the tax amount should also be negative
     * Handle various negative notations like minus signs, parentheses, etc.

4. Handling Empty Values:
   - Strings: Empty string ""
   - Numbers: null
   - Dates: Empty string ""
   - Arrays: Empty array []
   - Objects: Empty object {}

5. Data Validation:
   - Check for the presence of required fields
   - Verify the accuracy of amount calculations
   - Validate date formats (YYYY-MM-DD)
   - Handle fields with empty values if validation fails

6. Amount Comparison and Verification:
   - Compare the total amount of extracted items with the subtotal, tax, and total amounts
   - If there is a discrepancy:
     * Re-execute data extraction and verification
     * Analyze the cause of the discrepancy and correct if possible
     * Report the cause of the discrepancy if correction is not possible
   - Verification Process:
     * Verify the relationship: Subtotal + Tax = Total
     * Check if the total amount of items matches the subtotal
     * Verify if the tax is 10% of the subtotal (prioritize the explicitly stated value)

7. Error Handling:
   - Extract only verifiable parts in case of format inconsistency
   - Extract only confirmed parts in case of incomplete data
   - Handle ambiguous data as empty values

8. Data Verification and Accuracy Improvement:
   - Compare the extracted data with the actual PDF data to verify accuracy
   - If discrepancies are found:
     * Re-evaluate the extraction process
     * Identify potential causes for discrepancies
     * Adjust extraction parameters or methods to improve accuracy
     * Document findings and adjustments made to enhance data accuracy

9. PDF Data Extraction Process:
   - Step 1: Verify the invoice amount (total amount, tax, and subtotal)
   - Step 2: Check the number of items
   - Step 3: Review detailed information for each item
   - Step 4: Conduct a preliminary verification based on the extracted information
   - Step 5: If the preliminary verification is successful, perform a secondary verification by comparing with the PDF file
`

// InvoicePrompt is the system message for per-range invoice extraction. The
// analyzer's reason for the split, when present, steers where the model looks
// for amounts.
func InvoicePrompt(analysisReason string, metadata map[string]any) string {
	var b strings.Builder
	b.WriteString(invoiceRules)

	if md := FormatMetadata(metadata); md != "" {
		fmt.Fprintf(&b, `
Additional Information:
%s

Use this information for more accurate extraction. Match customer_names with invoice data if provided.
`, md)
	}

	if analysisReason != "" {
		fmt.Fprintf(&b, `
Analysis Reason:
%s

Use this analysis to prioritize amount information locations.
`, analysisReason)
	}
	return b.String()
}
