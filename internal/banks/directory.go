package banks

// Bank is a directory entry with its NUBAN bank code.
type Bank struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// directory lists the supported payout banks. Order is significant: ties
// during fuzzy resolution are broken by position.
var directory = []Bank{
	{Name: "Access Bank", Code: "044"},
	{Name: "Citibank Nigeria", Code: "023"},
	{Name: "Ecobank Nigeria", Code: "050"},
	{Name: "Fidelity Bank", Code: "070"},
	{Name: "First Bank of Nigeria", Code: "011"},
	{Name: "First City Monument Bank", Code: "214"},
	{Name: "Globus Bank", Code: "103"},
	{Name: "Guaranty Trust Bank", Code: "058"},
	{Name: "Keystone Bank", Code: "082"},
	{Name: "Kuda Bank", Code: "50211"},
	{Name: "Moniepoint MFB", Code: "50515"},
	{Name: "Opay", Code: "999992"},
	{Name: "Palmpay", Code: "999991"},
	{Name: "Polaris Bank", Code: "076"},
	{Name: "Providus Bank", Code: "101"},
	{Name: "Stanbic IBTC Bank", Code: "221"},
	{Name: "Standard Chartered Bank", Code: "068"},
	{Name: "Sterling Bank", Code: "232"},
	{Name: "Union Bank of Nigeria", Code: "032"},
	{Name: "United Bank For Africa", Code: "033"},
	{Name: "Unity Bank", Code: "215"},
	{Name: "Wema Bank", Code: "035"},
	{Name: "Zenith Bank", Code: "057"},
}

// All returns the directory in presentation order.
func All() []Bank {
	out := make([]Bank, len(directory))
	copy(out, directory)
	return out
}

// ByCode finds a bank by its NUBAN code.
func ByCode(code string) (Bank, bool) {
	for _, b := range directory {
		if b.Code == code {
			return b, true
		}
	}
	return Bank{}, false
}
