package prompt

// serviceRules is appended after the document section of the service prompt
const serviceRules = `Return ONLY valid JSON with no markdown formatting, no code blocks, no extra prose.

Format:
{
  "records": [
    {
      "recordType": "service" | "repair" | "upgrade" | null,
      "vehicleId": 1,
      "date": "YYYY-MM-DD",
      "odometer": 123456,
      "description": "short summary of the work",
      "totalCost": 64.80,
      "notes": "part numbers, labor hours, shop name",
      "tags": ["oil"],
      "extraFields": [{"name": "configured field name", "value": "text"}],
      "explanation": "why any field is null or uncertain"
    }
  ],
  "explanation": "overall notes",
  "warnings": [
    {"path": "/records/0/totalCost", "reason": "missing" | "guessed" | "uncertain" | "conflict", "message": "short reason"}
  ]
}

RECORDS:
- Return between 1 and 8 records. Group line items that belong to the same job into one record.
- "service" = scheduled or routine maintenance (oil, filters, fluids, tires rotation, inspections)
- "repair" = fixing something broken or worn outside routine maintenance
- "upgrade" = adding or improving equipment beyond the original
- Use null for recordType only when the work cannot be classified
- "vehicleId" must be one of the KNOWN VEHICLES ids; match on VIN, plate, make, model or year. Use null if no vehicle matches
- "date" is the service date in ISO-8601 (YYYY-MM-DD)
- "extraFields" may only use names configured for the record's type; omit the array otherwise
- "tags" are short lowercase keywords; omit the array when none apply

NUMBERS:
- Use "." as the decimal separator in the JSON even when the document uses ","; never use thousands separators
- Numbers must be JSON numbers, not strings, and must not include units or currency symbols

NULLS:
- If a value is not present in the document, use null and explain it in the record's "explanation"
- Never invent values. Do not copy a value from one record into another unless the document says it applies to both

COST ALLOCATION:
1. Assign every invoice line item (parts, labor, fees, discounts) to exactly one record.
2. A record's pre-tax subtotal is the sum of the line items assigned to it. Discounts are negative amounts.
3. The sum of all record subtotals must equal the invoice's stated pre-tax subtotal.
4. If tax is stated, allocate it across records proportionally to each record's subtotal, rounded to the cent.
5. Any rounding remainder goes to the last record so the allocated taxes add up to the stated tax exactly.
6. Each record's "totalCost" is its subtotal plus its allocated tax.
7. If the allocation cannot be done confidently, set "totalCost" to null on the affected records and explain why instead of guessing.
Example: subtotal 100.00 split 60.00 and 40.00 with tax 8.00 gives tax 4.80 and 3.20, so totalCost 64.80 and 43.20, summing to the invoice total 108.00.

WARNINGS:
- Add a warning for every field that is missing, guessed, uncertain, or conflicts between sources
- "path" addresses the field as /records/<index>/<field>, for example /records/1/odometer
- Omit "warnings" or return [] when everything was read clearly`
