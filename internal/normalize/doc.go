// Package normalize turns raw report cells into typed values.
//
// Report data is messy: dates arrive as 2021-06-15, 06/15/2021, 2021-06,
// Jun 2021 or 202106; money as "$12,345.67" or "-$50"; absence as "",
// "N/A", "Not Reported" or "[Not Provided]". Every function here is pure and
// total - unparseable input yields "no value", never an error or panic.
package normalize
