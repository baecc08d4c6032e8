package llm

// SchemaNode is a typed description of the output we want from the model.
// Leaves carry a wire type and a human-readable description; objects keep
// their fields ordered so generated schemas are stable across runs.
type SchemaNode struct {
	Type        string // "string", "integer", "number", "object", "array"
	Description string
	Fields      []Field     // object only, in declaration order
	Elem        *SchemaNode // array only
	Minimum     *int        // optional lower bound for integer leaves
}

type Field struct {
	Name string
	Node *SchemaNode
}

func Scalar(typ, description string) *SchemaNode {
	return &SchemaNode{Type: typ, Description: description}
}

func ScalarMin(typ, description string, min int) *SchemaNode {
	return &SchemaNode{Type: typ, Description: description, Minimum: &min}
}

func Object(fields ...Field) *SchemaNode {
	return &SchemaNode{Type: "object", Fields: fields}
}

func Array(description string, elem *SchemaNode) *SchemaNode {
	return &SchemaNode{Type: "array", Description: description, Elem: elem}
}

// ToJSONSchema converts a SchemaNode tree into the generic map shape the
// provider's function-call parameters expect. All object fields are required.
func ToJSONSchema(n *SchemaNode) map[string]any {
	out := map[string]any{"type": n.Type}
	if n.Description != "" {
		out["description"] = n.Description
	}
	switch n.Type {
	case "object":
		props := map[string]any{}
		required := make([]string, 0, len(n.Fields))
		for _, f := range n.Fields {
			props[f.Name] = ToJSONSchema(f.Node)
			required = append(required, f.Name)
		}
		out["properties"] = props
		out["required"] = required
	case "array":
		if n.Elem != nil {
			out["items"] = ToJSONSchema(n.Elem)
		}
	default:
		if n.Minimum != nil {
			out["minimum"] = *n.Minimum
		}
	}
	return out
}

// PageRangeSchema describes the page-range discovery output: an array of
// 1-based spans, each with the model's justification.
func PageRangeSchema() *SchemaNode {
	return Object(
		Field{"page_ranges", Array(
			"List of page ranges for each invoice document",
			Object(
				Field{"start_page", ScalarMin("integer", "Start page number (1-based index)", 1)},
				Field{"end_page", ScalarMin("integer", "End page number (1-based index)", 1)},
				Field{"reason", Scalar("string", "Reason for determining this page range as a single invoice")},
			),
		)},
	)
}

// InvoiceSchema describes one extracted invoice. Field descriptions carry the
// location and validation hints the model needs; every field is required and
// absent data degrades to a typed empty value.
func InvoiceSchema() *SchemaNode {
	return Object(
		Field{"invoice_number", Scalar("string",
			"Invoice number - Required field\n"+
				"- Location: Top right of the first page\n"+
				"- Label: 'Invoice No:', 'Invoice Number:', etc.\n"+
				"- Validation: Combination of letters, numbers, and special characters")},
		Field{"issue_date", Scalar("string",
			"Issue date - Required field\n"+
				"- Location: Top of the first page\n"+
				"- Label: 'Issue Date:', 'Date of Issue:', etc.\n"+
				"- Format: YYYY-MM-DD")},
		Field{"due_date", Scalar("string",
			"Due date - Required field\n"+
				"- Location: Near the issue date\n"+
				"- Label: 'Due Date:', 'Payment Due:', etc.\n"+
				"- Format: YYYY-MM-DD")},
		Field{"customer_name", Scalar("string",
			"Customer name - Required field\n"+
				"- Location: Top left of the first page\n"+
				"- Format: Company/Branch name (without honorifics)")},
		Field{"items", Array(
			"List of items - Required field\n"+
				"- Structure: Tabular item information\n"+
				"- Inclusion criteria:\n"+
				"  * Must have item_name\n"+
				"  * Must have quantity\n"+
				"  * Must have unit_price\n"+
				"  * Must have amount\n"+
				"- Exclusion criteria:\n"+
				"  * Category/section text\n"+
				"  * Rows with only notes/descriptions (no quantity/unit_price/amount)\n"+
				"  * Subtotal/total rows\n"+
				"  * Rows missing any of quantity/unit_price/amount\n"+
				"- Note/description handling:\n"+
				"  * Additional descriptions for items are included in item_name\n"+
				"  * Independent note/description rows are excluded",
			Object(
				Field{"item_name", Scalar("string",
					"Item name (can be an empty string)\n"+
						"- Name of the product/service\n"+
						"- May include related notes or descriptions\n"+
						"- Excludes category/section text")},
				Field{"quantity", Scalar("integer",
					"Quantity\n"+
						"- Integer value\n"+
						"- Can be positive or negative (negative for returns, etc.)")},
				Field{"unit_price", Scalar("number",
					"Unit price\n"+
						"- Number without commas/currency symbols\n"+
						"- Can be positive or negative (negative for discounts, etc.)")},
				Field{"amount", Scalar("number",
					"Amount\n"+
						"- Should match quantity * unit_price\n"+
						"- Can be positive or negative")},
			),
		)},
		Field{"subtotal", Scalar("number",
			"Subtotal - Required field\n"+
				"- Location and validation:\n"+
				"  * Compare the amount at the top of the first page with the total amount on the last page\n"+
				"  * Use the value if they are similar or match\n"+
				"  * If there is a difference, prioritize the first page amount\n"+
				"- Label: 'Subtotal:', 'Total before tax:', etc.\n"+
				"- Can be negative (if the entire invoice is a return/discount)")},
		Field{"taxes", Array(
			"Tax information - Required field\n"+
				"- Location and validation:\n"+
				"  * Compare the tax amount at the top of the first page with the total tax amount on the last page\n"+
				"  * Use the value if they are similar or match\n"+
				"  * If there is a difference, prioritize the first page amount\n"+
				"- Structure: Information by tax type\n"+
				"- Can be negative (if the subtotal is negative)",
			Object(
				Field{"tax_type", Scalar("string", "Type of tax (e.g., 'VAT', 'Sales Tax', etc.)")},
				Field{"tax_rate", Scalar("number",
					"Tax rate\n"+
						"- Number without % symbol\n"+
						"- Between 0 and 100 inclusive")},
				Field{"tax_amount", Scalar("number",
					"Tax amount\n"+
						"- Number without commas/currency symbols\n"+
						"- Compare with the tax amount on the first and last pages for validation\n"+
						"- Can be positive or negative")},
			),
		)},
		Field{"total_amount", Scalar("number",
			"Total amount - Required field\n"+
				"- Location and validation:\n"+
				"  * Compare the amount at the top of the first page with the total amount on the last page\n"+
				"  * Use the value if they are similar or match\n"+
				"  * If there is a difference, prioritize the first page amount\n"+
				"- Label: 'Total:', 'Grand Total:', etc.\n"+
				"- Can be negative (if the entire invoice is a return/discount)")},
	)
}
